package delivery

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ticketdesk-backend/internal/sync/usecase"
)

const (
	fetchNowDefaultCap     = 500
	checkUpdatesDefaultCap = 200
	dateLayout             = "2006-01-02"
)

// SyncHandler exposes the manual sync triggers.
type SyncHandler struct {
	orchestrator *usecase.Orchestrator
}

func NewSyncHandler(orchestrator *usecase.Orchestrator) *SyncHandler {
	return &SyncHandler{orchestrator: orchestrator}
}

func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/fetch-now", h.FetchNow)
		sync.POST("/check-updates", h.CheckUpdates)
	}
}

// FetchNow runs a full sync with caller-supplied knobs. An explicit start or
// end date switches the run to range mode.
func (h *SyncHandler) FetchNow(c *gin.Context) {
	opts := usecase.SyncOptions{
		MaxThreads:      queryInt(c, "max_threads", fetchNowDefaultCap),
		Incremental:     queryBool(c, "incremental", true),
		IncludeArchived: queryBool(c, "include_archived", false),
		AwaitingOnly:    queryBool(c, "awaiting_only", true),
		AutoClassify:    queryBool(c, "auto_classify", false),
	}

	var err error
	if opts.StartDate, err = queryDate(c, "start"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date, expected YYYY-MM-DD"})
		return
	}
	if opts.EndDate, err = queryDate(c, "end"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date, expected YYYY-MM-DD"})
		return
	}

	summary, err := h.orchestrator.SyncInboxThreads(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// CheckUpdates is the cheap polling trigger: always incremental, small cap.
func (h *SyncHandler) CheckUpdates(c *gin.Context) {
	opts := usecase.SyncOptions{
		MaxThreads:   queryInt(c, "max_threads", checkUpdatesDefaultCap),
		Incremental:  true,
		AwaitingOnly: queryBool(c, "awaiting_only", true),
		AutoClassify: queryBool(c, "auto_classify", false),
	}

	summary, err := h.orchestrator.SyncInboxThreads(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func queryBool(c *gin.Context, name string, def bool) bool {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func queryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
