package model

import (
	"regexp"
)

var (
	idRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]{1,64}$`)
)

// Reserved record keys.
const (
	FieldID        = "id"
	FieldVersion   = "version"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

func CheckDocumentID(id string) bool {
	return idRegex.MatchString(id)
}

func StripProtectedFields(doc Document) {
	delete(doc, FieldID)
	delete(doc, FieldVersion)
	delete(doc, FieldUpdatedAt)
	delete(doc, FieldCreatedAt)
}

// User facing record type, represents a JSON object.
//
//	"id" field is reserved for the record ID.
//	"version" field is reserved for the record version.
//	"updatedAt" field is reserved for last updated timestamp (unix millis).
//	"createdAt" field is reserved for creation timestamp (unix millis).
type Document map[string]interface{}

func (doc Document) GetID() string {
	if id, ok := doc[FieldID].(string); ok {
		return id
	}
	return ""
}

func (doc Document) GenerateIDIfEmpty() {
	if id, ok := doc[FieldID].(string); !ok || id == "" {
		doc[FieldID] = NewID()
	}
}

// GetString returns the string value stored under key, or "".
func (doc Document) GetString(key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

func (doc Document) GetVersion() int64 {
	switch v := doc[FieldVersion].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return -1
}

func (doc Document) StripProtectedFields() {
	StripProtectedFields(doc)
}

// Clone returns a shallow copy of the document.
func (doc Document) Clone() Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// Project keeps only the listed fields. The id is always kept.
// An empty field list returns the document unchanged.
func (doc Document) Project(fields []string) Document {
	if len(fields) == 0 {
		return doc
	}
	out := Document{}
	if id, ok := doc[FieldID]; ok {
		out[FieldID] = id
	}
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Omit drops the listed fields. The id is never dropped.
// An empty field list returns the document unchanged.
func (doc Document) Omit(fields []string) Document {
	if len(fields) == 0 {
		return doc
	}
	out := doc.Clone()
	for _, f := range fields {
		if f != FieldID {
			delete(out, f)
		}
	}
	return out
}
