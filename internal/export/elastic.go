package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
	"github.com/Caia-Tech/ff6-dataset/pkg/logging"
)

const pairsMapping = `{
  "mappings": {
    "properties": {
      "instruction": {"type": "text"},
      "input":       {"type": "text"},
      "output":      {"type": "text"}
    }
  }
}`

const sectionsMapping = `{
  "mappings": {
    "properties": {
      "title":    {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "url":      {"type": "keyword"},
      "heading":  {"type": "keyword"},
      "content":  {"type": "text"},
      "versions": {"type": "keyword"},
      "position": {"type": "integer"}
    }
  }
}`

type sectionDocument struct {
	Title    string               `json:"title"`
	URL      string               `json:"url"`
	Heading  string               `json:"heading"`
	Content  string               `json:"content"`
	Versions []dataset.VersionTag `json:"versions"`
	Position int                  `json:"position"`
}

// ElasticSink indexes pairs and sections into Elasticsearch
type ElasticSink struct {
	es     *elasticsearch.Client
	config *Config
	logger zerolog.Logger
}

// NewElasticSink creates a client for config.ElasticsearchURLs
func NewElasticSink(config *Config) (*ElasticSink, error) {
	if config == nil {
		config = DefaultConfig()
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: config.ElasticsearchURLs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticSink{
		es:     es,
		config: config,
		logger: logging.GetLogger("export.elastic"),
	}, nil
}

// EnsureIndices creates the pair and section indices when absent
func (s *ElasticSink) EnsureIndices(ctx context.Context) error {
	for index, mapping := range map[string]string{
		s.config.PairsIndex:    pairsMapping,
		s.config.SectionsIndex: sectionsMapping,
	} {
		if err := s.ensureIndex(ctx, index, mapping); err != nil {
			return err
		}
	}
	return nil
}

func (s *ElasticSink) ensureIndex(ctx context.Context, index, mapping string) error {
	res, err := s.es.Indices.Exists([]string{index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = s.es.Indices.Create(
		index,
		s.es.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
		s.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index %s: %s", index, res.String())
	}
	s.logger.Info().Str("index", index).Msg("Created index")
	return nil
}

// Export implements Sink using a bulk indexer. Document IDs are derived
// from content, so re-exporting overwrites rather than duplicates.
func (s *ElasticSink) Export(ctx context.Context, pages []dataset.Page, pairs []dataset.TrainingPair) (*ExportStats, error) {
	start := time.Now()
	stats := &ExportStats{Target: TargetElastic}

	if err := s.EnsureIndices(ctx); err != nil {
		return stats, err
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        s.es,
		NumWorkers:    s.config.BulkWorkers,
		FlushBytes:    s.config.FlushBytes,
		FlushInterval: s.config.FlushInterval,
	})
	if err != nil {
		return stats, fmt.Errorf("error creating bulk indexer: %w", err)
	}

	var sections, pairCount, failed int64
	add := func(index, id string, doc interface{}, counter *int64) error {
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return bi.Add(ctx, esutil.BulkIndexerItem{
			Index:      index,
			Action:     "index",
			DocumentID: id,
			Body:       bytes.NewReader(data),
			OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
				atomic.AddInt64(counter, 1)
			},
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				atomic.AddInt64(&failed, 1)
				if err != nil {
					s.logger.Warn().Err(err).Str("id", item.DocumentID).Msg("Bulk item failed")
				} else {
					s.logger.Warn().
						Str("id", item.DocumentID).
						Str("type", res.Error.Type).
						Str("reason", res.Error.Reason).
						Msg("Bulk item rejected")
				}
			},
		})
	}

	for _, page := range pages {
		for i, section := range page.Sections {
			doc := sectionDocument{
				Title:    page.Title,
				URL:      page.URL,
				Heading:  section.Heading,
				Content:  section.Content,
				Versions: section.Versions,
				Position: i,
			}
			if err := add(s.config.SectionsIndex, SectionID(page.Title, i, section.Heading), doc, &sections); err != nil {
				bi.Close(ctx)
				return stats, fmt.Errorf("failed to queue section: %w", err)
			}
		}
		stats.Pages++
	}

	for _, p := range pairs {
		if err := add(s.config.PairsIndex, PairID(p), p, &pairCount); err != nil {
			bi.Close(ctx)
			return stats, fmt.Errorf("failed to queue pair: %w", err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return stats, fmt.Errorf("bulk indexer close failed: %w", err)
	}

	stats.Sections = int(atomic.LoadInt64(&sections))
	stats.Pairs = int(atomic.LoadInt64(&pairCount))
	stats.Failed = int(atomic.LoadInt64(&failed))
	stats.Duration = time.Since(start)

	s.logger.Info().
		Int("sections", stats.Sections).
		Int("pairs", stats.Pairs).
		Uint64("flushed", bi.Stats().NumFlushed).
		Int("failed", stats.Failed).
		Msg("Elasticsearch export complete")
	return stats, nil
}

// Close is a no-op; the HTTP client needs no teardown
func (s *ElasticSink) Close() {}
