package handler

import (
	"time"

	"github.com/mssola/useragent"

	"freightdesk/internal/audit/models"
)

type clientInfo struct {
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Mobile  bool   `json:"mobile"`
	Bot     bool   `json:"bot"`
}

type entryResponse struct {
	*models.Entry
	OccurredAt string      `json:"occurred_at"`
	Client     *clientInfo `json:"client,omitempty"`
}

type listResponse struct {
	Entries []entryResponse `json:"entries"`
	Count   int             `json:"count"`
}

type recordedResponse struct {
	ID string `json:"id"`
}

func toListResponse(entries []*models.Entry) listResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return listResponse{Entries: out, Count: len(out)}
}

func toEntryResponse(e *models.Entry) entryResponse {
	return entryResponse{
		Entry:      e,
		OccurredAt: e.OccurredAt().Format(time.RFC3339Nano),
		Client:     classify(e.UserAgent),
	}
}

func classify(raw string) *clientInfo {
	if raw == "" {
		return nil
	}
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	if version != "" {
		browser += " " + version
	}
	return &clientInfo{
		Browser: browser,
		OS:      ua.OS(),
		Mobile:  ua.Mobile(),
		Bot:     ua.Bot(),
	}
}
