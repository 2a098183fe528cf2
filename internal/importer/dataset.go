// Package importer loads historical net-profit records into the store.
// The source only knows each player's net per night, so buy-in and
// cash-out are reconstructed under a fixed stake assumption.
package importer

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format of the dataset
const DateLayout = "2006-01-02"

//go:embed history.json
var history []byte

// Dataset is a batch of sessions and per-player net results keyed by date
type Dataset struct {
	Notes    string          `json:"notes,omitempty"`
	Sessions []SessionRecord `json:"sessions"`
	Players  []PlayerRecord  `json:"players"`
}

type SessionRecord struct {
	Date     string `json:"date"`
	Location string `json:"location"`
}

type PlayerRecord struct {
	Name    string                     `json:"name"`
	Results map[string]decimal.Decimal `json:"results"`
}

// Dates returns the player's result dates in calendar order
func (p PlayerRecord) Dates() []string {
	dates := make([]string, 0, len(p.Results))
	for d := range p.Results {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Parse decodes a dataset
func Parse(data []byte) (Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("failed to decode dataset: %w", err)
	}
	for i := range ds.Players {
		ds.Players[i].Name = strings.TrimSpace(ds.Players[i].Name)
	}
	return ds, nil
}

// LoadFile reads a dataset from disk
func LoadFile(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to read dataset: %w", err)
	}
	return Parse(data)
}

// History is the bundled record of the first three game nights
func History() Dataset {
	ds, err := Parse(history)
	if err != nil {
		panic(err)
	}
	return ds
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}
