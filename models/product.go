package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The store API and the UI both expect prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Category is a catalog category
type Category struct {
	ID   string        `json:"_id"`
	Name LocalizedText `json:"name"`
}

// CategoryRef is either a bare category id or an embedded category document.
type CategoryRef struct {
	ID       string
	Category *Category
}

func (r CategoryRef) MarshalJSON() ([]byte, error) {
	if r.Category != nil {
		return json.Marshal(r.Category)
	}
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

func (r *CategoryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = CategoryRef{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var c Category
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	r.ID = c.ID
	r.Category = &c
	return nil
}

// Product is read-only catalog data
type Product struct {
	ID       string        `json:"_id"`
	Name     LocalizedText `json:"name"`
	Desc     LocalizedText `json:"desc"`
	Img      string        `json:"img,omitempty"`
	Category CategoryRef   `json:"category"`
	Options  []Option      `json:"options"`
}

// DefaultOption returns the option flagged as default, else the first one.
func (p *Product) DefaultOption() *Option {
	for i := range p.Options {
		if p.Options[i].IsDefault {
			return &p.Options[i]
		}
	}
	if len(p.Options) > 0 {
		return &p.Options[0]
	}
	return nil
}

// FindOption looks up an option by its id.
func (p *Product) FindOption(optionID string) *Option {
	if optionID == "" {
		return nil
	}
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return &p.Options[i]
		}
	}
	return nil
}

// CategoryID returns the referenced category id, if any.
func (p *Product) CategoryID() string {
	return p.Category.ID
}

// Option is a purchasable variant of a product
type Option struct {
	ID        string           `json:"_id,omitempty"`
	Name      LocalizedText    `json:"name"`
	Price     decimal.Decimal  `json:"price"`
	VIPPrice  *decimal.Decimal `json:"vipPrice,omitempty"`
	IsDefault bool             `json:"isDefault,omitempty"`
	Quantity  *int             `json:"quantity,omitempty"` // nil = unlimited stock
	Img       string           `json:"img,omitempty"`
	Sale      *Sale            `json:"sale,omitempty"`
}

// Sale is a time-boxed price override. A nil Price means there is no sale.
type Sale struct {
	Start *time.Time       `json:"start,omitempty"`
	End   *time.Time       `json:"end,omitempty"`
	Price *decimal.Decimal `json:"price"`
}

var saleTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (s *Sale) UnmarshalJSON(data []byte) error {
	var raw struct {
		Start json.RawMessage  `json:"start"`
		End   json.RawMessage  `json:"end"`
		Price *decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Start = parseSaleTime(raw.Start)
	s.End = parseSaleTime(raw.End)
	s.Price = raw.Price
	return nil
}

// parseSaleTime treats empty, null and unparseable bounds as absent.
func parseSaleTime(raw json.RawMessage) *time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range saleTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
