package genome

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Annotation schemes available from the data API.
const (
	AnnotationPATRIC = "PATRIC"
	AnnotationRefSeq = "RefSeq"
)

// featureRows is the page size for feature queries.
const featureRows = 10000

// NotFoundError is returned when a genome ID is not in the data API.
type NotFoundError struct {
	GenomeID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("genome ID %s not found", e.GenomeID)
}

// Summary is the summary data for a genome. GC content is a percentage
// between 0 and 100.
type Summary struct {
	GenomeID     string  `json:"genome_id"`
	Name         string  `json:"genome_name"`
	TaxonID      int     `json:"taxon_id"`
	GenomeLength int     `json:"genome_length"`
	GCContent    float64 `json:"gc_content"`
}

// FeatureRecord is one feature from a genome annotation.
type FeatureRecord struct {
	PatricID       string `json:"patric_id"`
	RefseqLocusTag string `json:"refseq_locus_tag"`
	ProteinID      string `json:"protein_id"`
	FeatureType    string `json:"feature_type"`
	Annotation     string `json:"annotation"`
	Product        string `json:"product"`
	AASequence     string `json:"aa_sequence"`
	NASequence     string `json:"na_sequence"`
}

// FeatureID returns the authoritative feature ID for the annotation
// scheme the record came from.
func (r FeatureRecord) FeatureID() (string, error) {
	switch r.Annotation {
	case AnnotationPATRIC:
		return r.PatricID, nil
	case AnnotationRefSeq:
		return r.RefseqLocusTag, nil
	}
	return "", fmt.Errorf("annotation type %s is not supported", r.Annotation)
}

// Client queries a genome data API for genome summaries and features.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the data API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Summary gets the summary data for a genome.
func (c *Client) Summary(ctx context.Context, genomeID string) (*Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/genome/"+genomeID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get summary for genome %s: %w", genomeID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{GenomeID: genomeID}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("genome summary request returned status %d", resp.StatusCode)
	}

	var summary Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary for genome %s: %w", genomeID, err)
	}
	return &summary, nil
}

type featureResponse struct {
	Response struct {
		NumFound int             `json:"numFound"`
		Docs     []FeatureRecord `json:"docs"`
	} `json:"response"`
}

// Features gets the features of a genome from the requested annotation
// scheme. Results are paged through until the API reports no more
// features. Features of type source are always dropped.
func (c *Client) Features(ctx context.Context, genomeID, annotation string) ([]FeatureRecord, error) {
	if annotation != AnnotationPATRIC && annotation != AnnotationRefSeq {
		return nil, fmt.Errorf("annotation type %s is not supported", annotation)
	}

	var features []FeatureRecord
	count := 0
	for start := 0; ; {
		page, err := c.featurePage(ctx, genomeID, start)
		if err != nil {
			return nil, err
		}
		if page.Response.NumFound == 0 {
			return nil, fmt.Errorf("no features found for genome %s", genomeID)
		}
		for _, doc := range page.Response.Docs {
			if doc.FeatureType != "source" && doc.Annotation == annotation {
				features = append(features, doc)
			}
		}
		count += len(page.Response.Docs)
		if count >= page.Response.NumFound || len(page.Response.Docs) == 0 {
			break
		}
		start += len(page.Response.Docs)
	}
	return features, nil
}

func (c *Client) featurePage(ctx context.Context, genomeID string, start int) (*featureResponse, error) {
	params := url.Values{}
	params.Set("q", "genome_id:"+genomeID)
	params.Set("rows", strconv.Itoa(featureRows))
	params.Set("start", strconv.Itoa(start))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/genome_feature/?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/solrquery+x-www-form-urlencoded")
	req.Header.Set("Accept", "application/solr+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get features for genome %s: %w", genomeID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("genome feature request returned status %d", resp.StatusCode)
	}

	var page featureResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode features for genome %s: %w", genomeID, err)
	}
	return &page, nil
}
