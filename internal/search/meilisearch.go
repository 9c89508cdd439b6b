package search

import (
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"listing-portal/internal/models"
)

// Listing is the document stored in the index for one base record
type Listing struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Type            string   `json:"type"`
	Status          string   `json:"status"`
	Price           float64  `json:"price"`
	County          string   `json:"county"`
	SubCounty       string   `json:"sub_county"`
	LandMark        string   `json:"land_mark"`
	Features        string   `json:"features"`
	Images          []string `json:"images"`
	Listed          bool     `json:"listed"`
	IsActive        bool     `json:"is_active"`
	ExtensionStatus string   `json:"extension_status"`
	CreatedAt       int64    `json:"created_at"`
}

// NewListing converts a base record into its index document
func NewListing(p *models.Property) Listing {
	typ := p.TypeID
	if s, err := p.Subtype(); err == nil {
		typ = s.Slug()
	}
	images := []string(p.Images)
	if images == nil {
		images = []string{}
	}
	return Listing{
		ID:              p.ID,
		Title:           p.Title,
		Type:            typ,
		Status:          string(p.Status),
		Price:           p.Price,
		County:          p.County,
		SubCounty:       p.SubCounty,
		LandMark:        p.LandMark,
		Features:        p.Features,
		Images:          images,
		Listed:          p.Listed,
		IsActive:        p.IsActive,
		ExtensionStatus: string(p.ExtensionStatus),
		CreatedAt:       p.CreatedAt.Truncate(time.Second).Unix(),
	}
}

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = "properties"
	}

	return &SearchClient{
		client: client,
		index:  index,
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && !strings.Contains(err.Error(), "index_already_exists") {
		return err
	}

	// Configure searchable attributes
	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"title",
		"county",
		"sub_county",
		"land_mark",
		"features",
	})
	if err != nil {
		return err
	}

	// Configure filterable attributes
	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"type",
		"status",
		"price",
		"county",
		"listed",
		"is_active",
		"extension_status",
	})
	if err != nil {
		return err
	}

	// Configure sortable attributes
	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"price",
		"created_at",
	})
	if err != nil {
		return err
	}

	return nil
}

// IndexListing adds or replaces the document for one base record
func (s *SearchClient) IndexListing(p *models.Property) error {
	_, err := s.client.Index(s.index).AddDocuments([]Listing{NewListing(p)}, "id")
	return err
}

// IndexListings adds or replaces documents in bulk
func (s *SearchClient) IndexListings(properties []models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	docs := make([]Listing, 0, len(properties))
	for i := range properties {
		docs = append(docs, NewListing(&properties[i]))
	}
	_, err := s.client.Index(s.index).AddDocuments(docs, "id")
	return err
}

// DeleteListing removes one document
func (s *SearchClient) DeleteListing(id string) error {
	_, err := s.client.Index(s.index).DeleteDocument(id)
	return err
}
