package phraserouter

import (
	"errors"
	"fmt"
	"strings"
)

// Route maps a key phrase to the WhatsApp template sent when the phrase is found.
type Route struct {
	Phrase   string
	Template string
}

// RoutingTable is an ordered list of routes. Earlier routes take priority.
type RoutingTable []Route

// DefaultTable is the compiled-in routing table.
var DefaultTable = RoutingTable{
	{Phrase: "What is Dianetics?", Template: "toxic_survey"},
	{Phrase: "I'm interested in the Purif", Template: "toxic_survey"},
	{Phrase: "What is the Toxic Survey?", Template: "purif_template"},
}

var errEmptyPhrase = errors.New("phrase must not be empty")

// Router selects a template for inbound text by ordered substring matching.
// It is immutable after construction and safe for concurrent use.
type Router struct {
	routes []Route
}

// New creates a Router from table. Phrases are lowercased so they can match lowercased input.
func New(table RoutingTable) (*Router, error) {
	routes := make([]Route, 0, len(table))
	for i, r := range table {
		if strings.TrimSpace(r.Phrase) == "" {
			return nil, fmt.Errorf("route %d: %w", i, errEmptyPhrase)
		}
		if r.Template == "" {
			return nil, fmt.Errorf("route %d (%q): template must not be empty", i, r.Phrase)
		}
		routes = append(routes, Route{Phrase: strings.ToLower(r.Phrase), Template: r.Template})
	}
	return &Router{routes: routes}, nil
}

// Route returns the template of the first phrase contained in lowercasedText.
func (r *Router) Route(lowercasedText string) (string, bool) {
	for _, route := range r.routes {
		if strings.Contains(lowercasedText, route.Phrase) {
			return route.Template, true
		}
	}
	return "", false
}

// Len returns the number of routes.
func (r *Router) Len() int {
	return len(r.routes)
}
