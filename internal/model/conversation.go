// Package model defines data structures for the chat service.
package model

import (
	"time"
)

// ConversationState is a point-in-time copy of a conversation store.
type ConversationState struct {
	Messages        []Message `json:"messages"`
	Context         []string  `json:"context"`
	RecentResponses []string  `json:"recent_responses"`
	Loading         bool      `json:"loading"`
	Error           string    `json:"error,omitempty"`
}

// Session is a chat session owned by one client.
type Session struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// SessionResponse is returned by the session endpoints.
type SessionResponse struct {
	Session  Session       `json:"session"`
	Messages []MessageView `json:"messages"`
	Loading  bool          `json:"loading"`
	Error    string        `json:"error,omitempty"`
}

// SearchLinkCategory tags which search site a link targets.
type SearchLinkCategory string

const (
	SearchJWOrg SearchLinkCategory = "jworg"
	SearchWOL   SearchLinkCategory = "wol"
)

// SearchLink is a canonical search link found in message content. It is derived at render time and never stored.
type SearchLink struct {
	URL      string             `json:"url"`
	Keyword  string             `json:"keyword"`
	Category SearchLinkCategory `json:"category"`
}

// StructuredData is the schema.org descriptor served as JSON-LD.
type StructuredData struct {
	Context             string `json:"@context"`
	Type                string `json:"@type"`
	Name                string `json:"name"`
	URL                 string `json:"url"`
	Description         string `json:"description"`
	ApplicationCategory string `json:"applicationCategory"`
	OperatingSystem     string `json:"operatingSystem"`
	Offers              Offer  `json:"offers"`
}

// Offer is the schema.org price offer.
type Offer struct {
	Type          string `json:"@type"`
	Price         string `json:"price"`
	PriceCurrency string `json:"priceCurrency"`
}

// NewStructuredData builds the application descriptor.
func NewStructuredData(name, url string) StructuredData {
	return StructuredData{
		Context:             "https://schema.org",
		Type:                "WebApplication",
		Name:                name,
		URL:                 url,
		Description:         "AI-powered spiritual assistant for Jehovah's Witnesses",
		ApplicationCategory: "Spiritual Assistance",
		OperatingSystem:     "Web Browser",
		Offers: Offer{
			Type:          "Offer",
			Price:         "0",
			PriceCurrency: "USD",
		},
	}
}
