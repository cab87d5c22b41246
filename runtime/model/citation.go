package model

import "goa.design/anthropic-codec/runtime/union"

type (
	// CitationVariant is implemented by every citation location shape.
	CitationVariant interface{ isCitation() }

	// Citation points at the source passage supporting a text block.
	Citation struct {
		union.Value[CitationVariant]
	}

	// CharLocation cites a character range of a plain text document.
	CharLocation struct {
		CitedText      string  `json:"cited_text"`
		DocumentIndex  int     `json:"document_index"`
		DocumentTitle  *string `json:"document_title"`
		StartCharIndex int     `json:"start_char_index"`
		EndCharIndex   int     `json:"end_char_index"`
		FileID         *string `json:"file_id,omitempty"`
	}

	// PageLocation cites a page range of a PDF document.
	PageLocation struct {
		CitedText       string  `json:"cited_text"`
		DocumentIndex   int     `json:"document_index"`
		DocumentTitle   *string `json:"document_title"`
		StartPageNumber int     `json:"start_page_number"`
		EndPageNumber   int     `json:"end_page_number"`
		FileID          *string `json:"file_id,omitempty"`
	}

	// ContentBlockLocation cites a block range of a custom content document.
	ContentBlockLocation struct {
		CitedText       string  `json:"cited_text"`
		DocumentIndex   int     `json:"document_index"`
		DocumentTitle   *string `json:"document_title"`
		StartBlockIndex int     `json:"start_block_index"`
		EndBlockIndex   int     `json:"end_block_index"`
		FileID          *string `json:"file_id,omitempty"`
	}

	// WebSearchResultLocation cites a web search result.
	WebSearchResultLocation struct {
		CitedText      string  `json:"cited_text"`
		EncryptedIndex string  `json:"encrypted_index"`
		Title          *string `json:"title"`
		URL            string  `json:"url"`
	}

	// SearchResultLocation cites a block range of a search result supplied
	// by the caller.
	SearchResultLocation struct {
		CitedText         string  `json:"cited_text"`
		SearchResultIndex int     `json:"search_result_index"`
		Source            string  `json:"source"`
		Title             *string `json:"title"`
		StartBlockIndex   int     `json:"start_block_index"`
		EndBlockIndex     int     `json:"end_block_index"`
	}
)

var (
	citations = union.NewKeyed("type", []union.Variant[CitationVariant]{
		union.Case[CitationVariant, CharLocation]("char_location"),
		union.Case[CitationVariant, PageLocation]("page_location"),
		union.Case[CitationVariant, ContentBlockLocation]("content_block_location"),
		union.Case[CitationVariant, WebSearchResultLocation]("web_search_result_location"),
		union.Case[CitationVariant, SearchResultLocation]("search_result_location"),
	}, union.Named("Citation"))

	citedText = union.NewProjection(citations, "cited_text",
		union.Field[CitationVariant](func(c CharLocation) string { return c.CitedText }),
		union.Field[CitationVariant](func(c PageLocation) string { return c.CitedText }),
		union.Field[CitationVariant](func(c ContentBlockLocation) string { return c.CitedText }),
		union.Field[CitationVariant](func(c WebSearchResultLocation) string { return c.CitedText }),
		union.Field[CitationVariant](func(c SearchResultLocation) string { return c.CitedText }),
	)

	documentIndex = union.NewProjection(citations, "document_index",
		union.Field[CitationVariant](func(c CharLocation) int { return c.DocumentIndex }),
		union.Field[CitationVariant](func(c PageLocation) int { return c.DocumentIndex }),
		union.Field[CitationVariant](func(c ContentBlockLocation) int { return c.DocumentIndex }),
		union.Absent[CitationVariant, WebSearchResultLocation, int](),
		union.Absent[CitationVariant, SearchResultLocation, int](),
	)

	documentTitle = union.NewProjection(citations, "document_title",
		union.Map[CitationVariant](func(c CharLocation) (string, bool) { return deref(c.DocumentTitle) }),
		union.Map[CitationVariant](func(c PageLocation) (string, bool) { return deref(c.DocumentTitle) }),
		union.Map[CitationVariant](func(c ContentBlockLocation) (string, bool) { return deref(c.DocumentTitle) }),
		union.Map[CitationVariant](func(c WebSearchResultLocation) (string, bool) { return deref(c.Title) }),
		union.Map[CitationVariant](func(c SearchResultLocation) (string, bool) { return deref(c.Title) }),
	)
)

// NewCitation wraps a known citation variant.
func NewCitation(v CitationVariant) Citation {
	return Citation{union.Of(v)}
}

// CitationRegistry returns the registry citations decode through.
func CitationRegistry() *union.Registry[CitationVariant] { return citations }

// UnmarshalJSON decodes the citation variant named by "type". JSON null is
// rejected.
func (c *Citation) UnmarshalJSON(data []byte) error {
	return decodeInto(citations, data, &c.Value)
}

// CitedText returns the quoted passage.
func (c Citation) CitedText() (string, bool) { return citedText.Get(c.Value) }

// DocumentIndex returns the index of the cited document. Web search and
// search result citations have none.
func (c Citation) DocumentIndex() (int, bool) { return documentIndex.Get(c.Value) }

// DocumentTitle returns the document or result title when set.
func (c Citation) DocumentTitle() (string, bool) { return documentTitle.Get(c.Value) }

// MatchCitation invokes the handler of the held variant.
func MatchCitation[R any](c Citation,
	charLocation func(CharLocation) R,
	pageLocation func(PageLocation) R,
	contentBlockLocation func(ContentBlockLocation) R,
	webSearchResultLocation func(WebSearchResultLocation) R,
	searchResultLocation func(SearchResultLocation) R,
) (R, error) {
	return union.Match(c.Value,
		union.On[CitationVariant](charLocation),
		union.On[CitationVariant](pageLocation),
		union.On[CitationVariant](contentBlockLocation),
		union.On[CitationVariant](webSearchResultLocation),
		union.On[CitationVariant](searchResultLocation),
	)
}

func (CharLocation) isCitation()            {}
func (PageLocation) isCitation()            {}
func (ContentBlockLocation) isCitation()    {}
func (WebSearchResultLocation) isCitation() {}
func (SearchResultLocation) isCitation()    {}

// MarshalJSON encodes the location with its "char_location" discriminator.
func (c CharLocation) MarshalJSON() ([]byte, error) {
	type alias CharLocation
	return marshalTagged("char_location", alias(c))
}

// MarshalJSON encodes the location with its "page_location" discriminator.
func (c PageLocation) MarshalJSON() ([]byte, error) {
	type alias PageLocation
	return marshalTagged("page_location", alias(c))
}

// MarshalJSON encodes the location with its "content_block_location"
// discriminator.
func (c ContentBlockLocation) MarshalJSON() ([]byte, error) {
	type alias ContentBlockLocation
	return marshalTagged("content_block_location", alias(c))
}

// MarshalJSON encodes the location with its "web_search_result_location"
// discriminator.
func (c WebSearchResultLocation) MarshalJSON() ([]byte, error) {
	type alias WebSearchResultLocation
	return marshalTagged("web_search_result_location", alias(c))
}

// MarshalJSON encodes the location with its "search_result_location"
// discriminator.
func (c SearchResultLocation) MarshalJSON() ([]byte, error) {
	type alias SearchResultLocation
	return marshalTagged("search_result_location", alias(c))
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
