package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"projectboard/internal/models"
)

// DefaultLabelColor is used for Trello colors outside the palette.
const DefaultLabelColor = "#6b7280"

var trelloPalette = map[string]string{
	"green":        "#61bd4f",
	"yellow":       "#f2d600",
	"orange":       "#ff9f1a",
	"red":          "#eb5a46",
	"purple":       "#c377e0",
	"blue":         "#0079bf",
	"sky":          "#00c2e0",
	"lime":         "#51e898",
	"pink":         "#ff78cb",
	"black":        "#344563",
	"green_dark":   "#519839",
	"yellow_dark":  "#d9b51c",
	"orange_dark":  "#d29034",
	"red_dark":     "#b04632",
	"purple_dark":  "#89609e",
	"blue_dark":    "#055a8c",
	"sky_dark":     "#096faf",
	"lime_dark":    "#4bbf6b",
	"pink_dark":    "#cd5a91",
	"black_dark":   "#091e42",
	"green_light":  "#b3f1d0",
	"yellow_light": "#faf3c0",
	"orange_light": "#fce8c3",
	"red_light":    "#f5d3ce",
	"purple_light": "#e4c6f5",
	"blue_light":   "#bcd9ea",
	"sky_light":    "#bdecf3",
	"lime_light":   "#d3f6e4",
	"pink_light":   "#fdd0e8",
	"black_light":  "#c1c7d0",
}

// TrelloColor maps a Trello color name to its hex value.
func TrelloColor(name string) string {
	if hex, ok := trelloPalette[name]; ok {
		return hex
	}
	return DefaultLabelColor
}

// TrelloExport is the subset of a Trello board export the importer reads.
type TrelloExport struct {
	Name       string            `json:"name"`
	Desc       string            `json:"desc"`
	Lists      []TrelloList      `json:"lists"`
	Cards      []TrelloCard      `json:"cards"`
	Labels     []TrelloLabel     `json:"labels"`
	Checklists []TrelloChecklist `json:"checklists"`
	Actions    []TrelloAction    `json:"actions"`
}

type TrelloList struct {
	ID     string  `json:"id"`
	Name   *string `json:"name"`
	Pos    float64 `json:"pos"`
	Closed bool    `json:"closed"`
}

type TrelloCard struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Desc        string             `json:"desc"`
	IDList      string             `json:"idList"`
	Pos         float64            `json:"pos"`
	Due         *string            `json:"due"`
	DueComplete bool               `json:"dueComplete"`
	Closed      bool               `json:"closed"`
	IDLabels    []string           `json:"idLabels"`
	Attachments []TrelloAttachment `json:"attachments"`
	Cover       *struct {
		IDAttachment *string `json:"idAttachment"`
	} `json:"cover"`
}

type TrelloAttachment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Bytes    int64  `json:"bytes"`
}

type TrelloLabel struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

type TrelloChecklist struct {
	ID         string            `json:"id"`
	IDCard     string            `json:"idCard"`
	Name       string            `json:"name"`
	CheckItems []TrelloCheckItem `json:"checkItems"`
}

type TrelloCheckItem struct {
	Name  string  `json:"name"`
	State string  `json:"state"`
	Pos   float64 `json:"pos"`
}

type TrelloAction struct {
	Type string `json:"type"`
	Date string `json:"date"`
	Data struct {
		Text string `json:"text"`
		Card struct {
			ID string `json:"id"`
		} `json:"card"`
	} `json:"data"`
	MemberCreator struct {
		FullName string `json:"fullName"`
	} `json:"memberCreator"`
}

// ParseTrelloExport decodes and validates a Trello board export.
func ParseTrelloExport(data []byte) (*TrelloExport, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, models.NewValidationError("Invalid JSON file: " + err.Error())
	}
	var missing []string
	for _, key := range []string{"name", "lists", "cards"} {
		if v, ok := raw[key]; !ok || string(bytes.TrimSpace(v)) == "null" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, models.NewValidationError("Invalid Trello export: missing required keys: " + strings.Join(missing, ", "))
	}
	for _, key := range []string{"lists", "cards"} {
		if !bytes.HasPrefix(bytes.TrimSpace(raw[key]), []byte("[")) {
			return nil, models.NewValidationError(fmt.Sprintf("Invalid Trello export: %q must be an array", key))
		}
	}

	var export TrelloExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, models.NewValidationError("Invalid Trello export: " + err.Error())
	}
	for i, list := range export.Lists {
		if list.ID == "" || list.Name == nil {
			return nil, models.NewValidationError(fmt.Sprintf("Invalid list at index %d: missing 'id' or 'name'", i))
		}
	}
	return &export, nil
}

// importTitle fits a card title into the column limit. A cut title is returned with the
// description extended by the original.
func importTitle(title, desc string) (string, *string) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled card"
	}
	var description *string
	if desc != "" {
		description = &desc
	}
	if utf8.RuneCountInString(title) <= models.MaxCardTitleLength {
		return title, description
	}
	original := title
	title = string([]rune(title)[:models.MaxCardTitleLength-3]) + "..."
	note := "Original Trello title (truncated in card title):\n" + original
	if description != nil {
		note = *description + "\n\n" + note
	}
	return title, &note
}

// importLabelName names an unnamed Trello label after its color.
func importLabelName(label TrelloLabel) string {
	if name := strings.TrimSpace(label.Name); name != "" {
		return name
	}
	color := "unnamed"
	if label.Color != nil && *label.Color != "" {
		color = *label.Color
	}
	r, size := utf8.DecodeRuneInString(color)
	return string(unicode.ToUpper(r)) + color[size:]
}

func importLabelColor(label TrelloLabel) string {
	if label.Color == nil {
		return DefaultLabelColor
	}
	return TrelloColor(*label.Color)
}

// parseTrelloDate accepts Trello timestamps and plain dates. Unparseable values yield nil.
func parseTrelloDate(v *string) *time.Time {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, strings.TrimSpace(*v)); err == nil {
			return &t
		}
	}
	return nil
}

// sortedLists orders lists by position.
func sortedLists(lists []TrelloList) []TrelloList {
	out := append([]TrelloList(nil), lists...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	return out
}

// cardsByList groups cards per list, each group sorted by position. Lists keep the order in
// which their first card appears.
func cardsByList(cards []TrelloCard) ([]string, map[string][]TrelloCard) {
	sorted := append([]TrelloCard(nil), cards...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Pos < sorted[j].Pos })
	var order []string
	groups := map[string][]TrelloCard{}
	for _, c := range sorted {
		if _, ok := groups[c.IDList]; !ok {
			order = append(order, c.IDList)
		}
		groups[c.IDList] = append(groups[c.IDList], c)
	}
	return order, groups
}

// commentActions returns commentCard actions, oldest first.
func commentActions(actions []TrelloAction) []TrelloAction {
	var out []TrelloAction
	for _, a := range actions {
		if a.Type == "commentCard" {
			out = append(out, a)
		}
	}
	at := func(a TrelloAction) time.Time {
		if t := parseTrelloDate(&a.Date); t != nil {
			return *t
		}
		return time.Time{}
	}
	sort.SliceStable(out, func(i, j int) bool { return at(out[i]).Before(at(out[j])) })
	return out
}
