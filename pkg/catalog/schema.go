// pkg/catalog/schema.go
package catalog

// Catalog is the seed set of activities loaded at startup.
type Catalog struct {
	Version     string  `json:"version"`
	LastUpdated string  `json:"lastUpdated,omitempty"`
	Activities  []Entry `json:"activities"`
}

// Entry is one activity in the catalog file.
type Entry struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// jsonSchema is the structural contract for catalog files. Cross-entry rules
// (unique names, roster within capacity) are checked in Validate.
const jsonSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["activities"],
  "properties": {
    "version": {"type": "string"},
    "lastUpdated": {"type": "string"},
    "activities": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "description", "schedule", "max_participants"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "schedule": {"type": "string"},
          "max_participants": {"type": "integer", "minimum": 1},
          "participants": {
            "type": "array",
            "items": {"type": "string", "minLength": 1},
            "uniqueItems": true
          }
        }
      }
    }
  }
}`
