package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/appolinair2355/Apdepo/predictor"
	"github.com/appolinair2355/Apdepo/telegram"
	"github.com/appolinair2355/Apdepo/telemetry"
)

// HandleWebhook accepts Telegram update callbacks. Updates from other chats,
// without text, or without a game marker are acknowledged and dropped; the
// Bot API redelivers on non-2xx responses, so anything we cannot act on must
// still return 200. Redelivery of a processable event is safe because the
// engine is idempotent per target index.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	log := telemetry.LoggerWithCorr(r.Context()).With(slog.String("component", "webhook"))

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Warn("undecodable update", slog.Any("err", err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	msg, edited := update.Payload()
	if msg == nil {
		log.Debug("update without message payload", slog.Int64("update_id", update.UpdateID))
		h.ack(w)
		return
	}
	if msg.Chat.ID != h.channelID {
		log.Debug("ignoring foreign chat", slog.Int64("chat_id", msg.Chat.ID))
		h.ack(w)
		return
	}
	text := msg.Body()
	game, ok := predictor.GameNumber(text)
	if !ok {
		log.Debug("message without game marker", slog.Int64("message_id", msg.MessageID))
		h.ack(w)
		return
	}

	telemetry.IncWebhookEvents()
	log.Info("processing source message",
		slog.Int("game", game),
		slog.Bool("edited", edited),
		slog.Int64("message_id", msg.MessageID))
	h.engine.Process(r.Context(), predictor.Message{GameIndex: game, Text: text, Edited: edited})
	h.ack(w)
}

func (h *Handlers) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
