package telephony

import (
	"errors"
	"net/http"
	"time"

	"voice-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// StatusCallbackHandler converts a backend status callback into a lifecycle event
// and hands it to the call's open stream.
//
// No business logic here: whether the event applies is decided by the state machine.
type StatusCallbackHandler struct {
	Dialer *CallbackDialer

	Now func() time.Time
}

func (h StatusCallbackHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Now == nil {
		h.Now = time.Now
	}
	if h.Dialer == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "callback dialer not configured"})
		return
	}

	form, err := ParseStatusCallback(c.Request)
	if err != nil {
		log.Warn("status callback parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	ev, err := form.ToEvent(h.Now())
	if errors.Is(err, ErrIgnoredStatus) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		log.Warn("status callback rejected", "call_id", form.CallSid, "status", form.CallStatus, "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.Dialer.Deliver(form.AccountSid, form.CallSid, ev) {
		log.Warn("status callback for unknown call", "call_id", form.CallSid, "account_id", form.AccountSid, "status", form.CallStatus)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown call"})
		return
	}
	log.Info("status callback delivered", "call_id", form.CallSid, "event", ev.Kind)
	c.Status(http.StatusNoContent)
}
