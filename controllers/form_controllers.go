package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/forms-api/database"
	"github.com/yeremiapane/forms-api/feed"
	"github.com/yeremiapane/forms-api/models"
	"github.com/yeremiapane/forms-api/services"
	"github.com/yeremiapane/forms-api/utils"
)

// Enricher resolves a profile link to public profile data, or nil.
type Enricher interface {
	Enrich(ctx context.Context, link string) *services.XProfile
}

// SubmissionNotifier is told about every stored submission.
type SubmissionNotifier interface {
	BroadcastSubmission(ev feed.SubmissionEvent)
}

type FormController struct {
	Store    database.Store
	Enricher Enricher
	Notifier SubmissionNotifier
}

func NewFormController(store database.Store, enricher Enricher, notifier SubmissionNotifier) *FormController {
	return &FormController{Store: store, Enricher: enricher, Notifier: notifier}
}

type createSubmissionResponse struct {
	ID        uint64    `json:"id"`
	Form      string    `json:"form"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSubmission stores one submission for :formName.
func (fc *FormController) CreateSubmission(c *gin.Context) {
	formName := utils.SanitizeFormName(c.Param("formName"))

	payload, err := readPayload(c.Request)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(c, http.StatusRequestEntityTooLarge, utils.ErrCodeTooLarge)
			return
		}
		utils.InfoLogger.WithError(err).Debug("unreadable body, storing empty payload")
		payload = map[string]interface{}{}
	}

	if link := profileLink(payload); link != "" && fc.Enricher != nil {
		if profile := fc.Enricher.Enrich(c.Request.Context(), link); profile != nil {
			mergeProfile(payload, profile)
		}
	}

	res, err := fc.Store.StoreSubmission(c.Request.Context(), formName, payload, c.GetHeader("User-Agent"), utils.ClientIP(c))
	if err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"form":  formName,
			"error": err.Error(),
		}).Error("failed to store submission")
		utils.RespondError(c, http.StatusInternalServerError, utils.ErrCodeStoreFailed)
		return
	}

	if fc.Notifier != nil {
		fc.Notifier.BroadcastSubmission(feed.SubmissionEvent{
			ID:        res.ID,
			Form:      formName,
			CreatedAt: res.CreatedAt,
		})
	}

	utils.RespondJSON(c, http.StatusCreated, createSubmissionResponse{
		ID:        res.ID,
		Form:      formName,
		CreatedAt: res.CreatedAt,
	})
}

// ListForms lists every form name that has at least one submission.
// Failures degrade to an empty list.
func (fc *FormController) ListForms(c *gin.Context) {
	forms, err := fc.Store.ListForms(c.Request.Context())
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("failed to list forms")
		forms = []string{}
	}
	utils.RespondJSON(c, http.StatusOK, gin.H{"forms": forms})
}

// ListSubmissions returns one page of a form's submissions, newest first.
func (fc *FormController) ListSubmissions(c *gin.Context) {
	formName := utils.SanitizeFormName(c.Param("formName"))
	p := utils.ParsePagination(c.Query("page"), c.Query("limit"))
	ctx := c.Request.Context()

	submissions, err := fc.Store.ListSubmissions(ctx, formName, p.Limit, p.Offset)
	if err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"form":  formName,
			"error": err.Error(),
		}).Error("failed to list submissions")
		utils.RespondError(c, http.StatusInternalServerError, utils.ErrCodeListFailed)
		return
	}

	total, err := fc.Store.CountSubmissions(ctx, formName)
	if err != nil {
		utils.ErrorLogger.WithField("form", formName).WithError(err).Error("failed to count submissions")
		utils.RespondError(c, http.StatusInternalServerError, utils.ErrCodeListFailed)
		return
	}

	utils.RespondJSON(c, http.StatusOK, gin.H{
		"page":        p.Page,
		"limit":       p.Limit,
		"total":       total,
		"submissions": submissions,
	})
}

func (fc *FormController) GetSubmission(c *gin.Context) {
	formName := utils.SanitizeFormName(c.Param("formName"))
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.ErrCodeNotFound)
		return
	}

	sub, err := fc.Store.GetSubmission(c.Request.Context(), formName, id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		utils.RespondError(c, http.StatusNotFound, utils.ErrCodeNotFound)
		return
	case err != nil:
		utils.ErrorLogger.WithField("form", formName).WithError(err).Error("failed to get submission")
		utils.RespondError(c, http.StatusInternalServerError, utils.ErrCodeGetFailed)
		return
	}

	utils.RespondJSON(c, http.StatusOK, gin.H{"submission": sub})
}

// GetStats reports how many submissions a form has and when the last one arrived.
func (fc *FormController) GetStats(c *gin.Context) {
	formName := utils.SanitizeFormName(c.Param("formName"))
	ctx := c.Request.Context()

	total, err := fc.Store.CountSubmissions(ctx, formName)
	if err != nil {
		utils.ErrorLogger.WithField("form", formName).WithError(err).Error("failed to count submissions")
		utils.RespondError(c, http.StatusInternalServerError, utils.ErrCodeStatsFailed)
		return
	}
	latest, err := fc.Store.LatestSubmission(ctx, formName)
	if err != nil {
		utils.ErrorLogger.WithField("form", formName).WithError(err).Error("failed to get latest submission")
		utils.RespondError(c, http.StatusInternalServerError, utils.ErrCodeStatsFailed)
		return
	}

	utils.RespondJSON(c, http.StatusOK, gin.H{
		"form":   formName,
		"total":  total,
		"latest": latest,
	})
}

// readPayload decodes a JSON object or an urlencoded form. Any other body
// (arrays, scalars, bad JSON, unknown content types) yields an empty map.
// Only a read failure is returned as an error.
func readPayload(r *http.Request) (map[string]interface{}, error) {
	payload := map[string]interface{}{}
	if r.Body == nil {
		return payload, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return payload, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/x-www-form-urlencoded":
		// Keys stay flat: a[b]=c is stored under the literal key "a[b]".
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return payload, nil
		}
		for k, vs := range values {
			if len(vs) == 1 {
				payload[k] = vs[0]
				continue
			}
			list := make([]interface{}, len(vs))
			for i, v := range vs {
				list[i] = v
			}
			payload[k] = list
		}
	case mediaType == "" || strings.HasSuffix(mediaType, "json"):
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var decoded interface{}
		if err := dec.Decode(&decoded); err != nil {
			return payload, nil
		}
		if obj, ok := decoded.(map[string]interface{}); ok {
			payload = obj
		}
	}
	return payload, nil
}

// profileLink returns the first non-empty profile link in the payload.
func profileLink(payload map[string]interface{}) string {
	for _, key := range models.XProfileKeys {
		if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func mergeProfile(payload map[string]interface{}, p *services.XProfile) {
	payload["xUsername"] = p.Username
	if p.ProfileImageURL != "" {
		payload["xProfileImageUrl"] = p.ProfileImageURL
	}
	if p.FollowersCount == nil {
		return
	}
	payload["xFollowersCount"] = *p.FollowersCount
	if !hasValue(payload["followers"]) {
		payload["followers"] = strconv.FormatInt(*p.FollowersCount, 10)
	}
}

func hasValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	}
	return true
}
