package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/grtshw/wedding-invitation/models"
	"github.com/grtshw/wedding-invitation/store"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// handleDashboardStats counts guests by status and root RSVPs by attendance.
func (s *server) handleDashboardStats(re *core.RequestEvent) error {
	totalGuests, err := s.app.CountRecords(utils.CollectionGuests)
	if err != nil {
		utils.RequestLogger(re, "dashboard").Error().Err(err).Msg("failed to count guests")
		return utils.InternalErrorResponse(re, "Failed to load stats")
	}

	byStatus := make(map[string]int64, len(models.RSVPStatuses))
	for _, st := range models.RSVPStatuses {
		n, _ := s.app.CountRecords(utils.CollectionGuests, dbx.HashExp{utils.FieldRSVPStatus: string(st)})
		byStatus[string(st)] = n
	}

	roots := dbx.HashExp{utils.FieldParentID: ""}
	responses := make(map[string]int64, len(models.Attendances))
	for _, a := range models.Attendances {
		n, _ := s.app.CountRecords(utils.CollectionMessages, roots, dbx.HashExp{"attendance": string(a)})
		responses[string(a)] = n
	}

	comments, _ := s.app.CountRecords(utils.CollectionMessages, roots, dbx.NewExp("message != ''"))
	replies, _ := s.app.CountRecords(utils.CollectionMessages, dbx.NewExp("parent_id != ''"))

	return utils.DataResponse(re, map[string]any{
		"guests": map[string]any{
			"total":     totalGuests,
			"by_status": byStatus,
		},
		"responses": map[string]int64{
			"attending":     responses[string(models.AttendanceYes)],
			"not_attending": responses[string(models.AttendanceNo)],
			"maybe":         responses[string(models.AttendanceMaybe)],
		},
		"comments": comments,
		"replies":  replies,
	})
}

// handleCommentsList returns messages newest first, optionally filtered by
// a case-insensitive search over name and text.
func (s *server) handleCommentsList(re *core.RequestEvent) error {
	messages, err := s.store.ListMessages(re.Request.Context())
	if err != nil {
		utils.RequestLogger(re, "dashboard").Error().Err(err).Msg("failed to list messages")
		return utils.InternalErrorResponse(re, "Failed to fetch comments")
	}

	items := searchMessages(messages, re.Request.URL.Query().Get("search"))
	return utils.DataResponse(re, map[string]any{
		"items":      items,
		"totalItems": len(items),
	})
}

// searchMessages reverses messages to newest first and keeps those whose
// name or text contains search.
func searchMessages(messages []models.MessageRecord, search string) []models.MessageRecord {
	key := store.NameKey(strings.TrimSpace(search))
	out := make([]models.MessageRecord, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if key != "" &&
			!strings.Contains(store.NameKey(m.Name), key) &&
			!strings.Contains(store.NameKey(m.Message), key) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (s *server) handleCommentDelete(re *core.RequestEvent) error {
	id := re.Request.PathValue("id")
	err := s.store.DeleteMessage(re.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return utils.NotFoundResponse(re, "Comment not found")
	}
	if err != nil {
		utils.RequestLogger(re, "dashboard").Error().Err(err).Str("id", id).Msg("failed to delete comment")
		return utils.InternalErrorResponse(re, "Failed to delete comment")
	}
	return re.NoContent(http.StatusNoContent)
}
