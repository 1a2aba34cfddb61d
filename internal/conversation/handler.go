package conversation

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"telemetry_backend/internal/readings"
)

// Handler binds webhook payloads and relays them to the service. Every
// endpoint answers 200 with a message-shaped body: the chat platform
// renders whatever comes back, so HTTP status is reserved for transport
// problems the platform itself caused.
type Handler struct {
	service *Service
}

// NewHandler creates a conversation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func bindStep[T any](c *gin.Context) (T, bool) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, false
	}
	return req, true
}

func badStep(c *gin.Context, message string) {
	c.JSON(http.StatusOK, StepResponse{Success: false, Message: message})
}

// Intro handles POST /api/v2/webhook/intro.
func (h *Handler) Intro(c *gin.Context) {
	req, ok := bindStep[ContactRequest](c)
	if !ok || req.ContactID == "" {
		badStep(c, genericFailure)
		return
	}
	c.JSON(http.StatusOK, h.service.Intro(c.Request.Context(), req))
}

// LanguageSelection handles POST /api/v2/webhook/language/selection.
func (h *Handler) LanguageSelection(c *gin.Context) {
	req, ok := bindStep[ContactRequest](c)
	if !ok || req.ContactID == "" {
		badStep(c, "Language selection could not be prepared.")
		return
	}
	c.JSON(http.StatusOK, h.service.LanguageSelection(c.Request.Context(), req))
}

// SelectedLanguage handles POST /api/v2/webhook/selected/language.
func (h *Handler) SelectedLanguage(c *gin.Context) {
	req, ok := bindStep[SelectedLanguageRequest](c)
	if !ok || req.ContactID == "" || req.Language == "" {
		badStep(c, "Language selection could not be saved.")
		return
	}
	c.JSON(http.StatusOK, h.service.SelectedLanguage(c.Request.Context(), req))
}

// ChannelSelection handles POST /api/v2/webhook/channel/selection.
func (h *Handler) ChannelSelection(c *gin.Context) {
	req, ok := bindStep[ContactRequest](c)
	if !ok || req.ContactID == "" {
		badStep(c, "Channel selection could not be prepared.")
		return
	}
	c.JSON(http.StatusOK, h.service.ChannelSelection(c.Request.Context(), req))
}

// SelectedChannel handles POST /api/v2/webhook/selected/channel.
func (h *Handler) SelectedChannel(c *gin.Context) {
	req, ok := bindStep[SelectedChannelRequest](c)
	if !ok || req.ContactID == "" || req.Channel == "" {
		badStep(c, "Channel selection could not be saved.")
		return
	}
	c.JSON(http.StatusOK, h.service.SelectedChannel(c.Request.Context(), req))
}

// ItemSelection handles POST /api/v2/webhook/item/selection.
func (h *Handler) ItemSelection(c *gin.Context) {
	req, ok := bindStep[ContactRequest](c)
	if !ok || req.ContactID == "" {
		badStep(c, "Item selection could not be prepared.")
		return
	}
	c.JSON(http.StatusOK, h.service.ItemSelection(c.Request.Context(), req))
}

// SelectedItem handles POST /api/v2/webhook/selected/item.
func (h *Handler) SelectedItem(c *gin.Context) {
	req, ok := bindStep[SelectedItemRequest](c)
	if !ok || req.ContactID == "" || req.Channel == "" {
		badStep(c, "Item selection could not be saved.")
		return
	}
	c.JSON(http.StatusOK, h.service.SelectedItem(c.Request.Context(), req))
}

// MeterChange handles POST /api/v2/webhook/meterChange.
func (h *Handler) MeterChange(c *gin.Context) {
	req, ok := bindStep[ContactRequest](c)
	if !ok || req.ContactID == "" {
		badStep(c, "Meter change reasons could not be prepared.")
		return
	}
	c.JSON(http.StatusOK, h.service.MeterChange(c.Request.Context(), req))
}

// TakeMeterReading handles POST /api/v2/webhook/takemeterreading.
func (h *Handler) TakeMeterReading(c *gin.Context) {
	req, ok := bindStep[TakeReadingRequest](c)
	if !ok || req.ContactID == "" || req.Reason == "" {
		badStep(c, "Take meter reading prompt could not be prepared.")
		return
	}
	c.JSON(http.StatusOK, h.service.TakeMeterReading(c.Request.Context(), req))
}

// ManualReading handles POST /api/v2/webhook/manualReading.
func (h *Handler) ManualReading(c *gin.Context) {
	req, ok := bindStep[ManualReadingRequest](c)
	if !ok || req.ContactID == "" || req.ManualReading == "" {
		c.JSON(http.StatusOK, ReadingResponse{
			Success:       false,
			Message:       "Manual reading could not be saved.",
			CorrelationID: req.ContactID,
			QualityStatus: readings.StatusRejected,
		})
		return
	}
	c.JSON(http.StatusOK, h.service.ManualReading(c.Request.Context(), req))
}

// Glific handles POST /api/v2/webhook/glific, the image submission step.
func (h *Handler) Glific(c *gin.Context) {
	req, ok := bindStep[MediaRequest](c)
	if !ok || req.ContactID == "" {
		c.JSON(http.StatusOK, ReadingResponse{
			Success:       false,
			Message:       genericFailure,
			CorrelationID: req.ContactID,
			QualityStatus: readings.StatusRejected,
		})
		return
	}
	c.JSON(http.StatusOK, h.service.ProcessImage(c.Request.Context(), req))
}

// Closing handles POST /api/v2/webhook/closing.
func (h *Handler) Closing(c *gin.Context) {
	req, ok := bindStep[ContactRequest](c)
	if !ok || req.ContactID == "" {
		badStep(c, genericFailure)
		return
	}
	c.JSON(http.StatusOK, h.service.Closing(c.Request.Context(), req))
}
