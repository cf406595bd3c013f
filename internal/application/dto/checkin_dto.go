package dto

import "github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"

// CheckinItem is one submitted checklist item. Items with an empty Key
// are dropped.
type CheckinItem struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Done    bool   `json:"done"`
	Comment string `json:"comment"`
	Minutes *int   `json:"minutes,omitempty"`
}

// CheckinRequest is a check-in submission. Mode is free-form and
// normalised on save.
type CheckinRequest struct {
	Mode       string        `json:"mode"`
	Items      []CheckinItem `json:"items"`
	Reflection string        `json:"reflection"`
}

// DraftView is the draft as shown to the check-in surface
type DraftView struct {
	Day        string                  `json:"day"`
	Mode       string                  `json:"mode"`
	Items      map[string]checkin.Item `json:"items"`
	Reflection string                  `json:"reflection"`
	UpdatedAt  string                  `json:"updatedAt,omitempty"`
}

// NewDraftView converts a domain draft
func NewDraftView(d checkin.Draft) DraftView {
	items := d.Items
	if items == nil {
		items = map[string]checkin.Item{}
	}
	return DraftView{
		Day:        d.Day,
		Mode:       d.Mode.String(),
		Items:      items,
		Reflection: d.Reflection,
		UpdatedAt:  d.UpdatedAt,
	}
}
