package types

import "strings"

// Columns is the CSV header every step reads and writes, in order.
var Columns = []string{"name", "street", "city", "state", "zip", "website", "phone", "source"}

// Record is a single dispensary contact row.
type Record struct {
	Name    string `csv:"name"    json:"name"    bson:"name"`
	Street  string `csv:"street"  json:"street"  bson:"street"`
	City    string `csv:"city"    json:"city"    bson:"city"`
	State   string `csv:"state"   json:"state"   bson:"state"`
	Zip     string `csv:"zip"     json:"zip"     bson:"zip"`
	Website string `csv:"website" json:"website" bson:"website"`
	Phone   string `csv:"phone"   json:"phone"   bson:"phone"`
	Source  string `csv:"source"  json:"source"  bson:"source"`
}

// Key identifies a record across scrape runs: normalized (name, street, city).
type Key struct {
	Name   string
	Street string
	City   string
}

// String returns the key in "name|street|city" form.
func (k Key) String() string {
	return k.Name + "|" + k.Street + "|" + k.City
}

// IsZero reports whether the key carries no identifying text.
func (k Key) IsZero() bool {
	return k.Name == "" && k.Street == "" && k.City == ""
}

// IsComplete reports whether the record has a name and at least a street or
// a city. Incomplete records never take part in a merge.
func (r Record) IsComplete() bool {
	if strings.TrimSpace(r.Name) == "" {
		return false
	}
	return strings.TrimSpace(r.Street) != "" || strings.TrimSpace(r.City) != ""
}

// HasWebsite reports whether the website field is populated.
func (r Record) HasWebsite() bool { return strings.TrimSpace(r.Website) != "" }

// HasPhone reports whether the phone field is populated.
func (r Record) HasPhone() bool { return strings.TrimSpace(r.Phone) != "" }

// Get returns a field by its column name.
func (r Record) Get(column string) string {
	switch column {
	case "name":
		return r.Name
	case "street":
		return r.Street
	case "city":
		return r.City
	case "state":
		return r.State
	case "zip":
		return r.Zip
	case "website":
		return r.Website
	case "phone":
		return r.Phone
	case "source":
		return r.Source
	}
	return ""
}

// Set assigns a field by its column name. Unknown columns are ignored.
func (r *Record) Set(column, value string) {
	switch column {
	case "name":
		r.Name = value
	case "street":
		r.Street = value
	case "city":
		r.City = value
	case "state":
		r.State = value
	case "zip":
		r.Zip = value
	case "website":
		r.Website = value
	case "phone":
		r.Phone = value
	case "source":
		r.Source = value
	}
}
