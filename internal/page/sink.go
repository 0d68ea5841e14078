package page

import (
	"context"
	"fmt"
	"time"

	"github.com/eyedraw/eyedraw/internal/document"
	"github.com/eyedraw/eyedraw/internal/store"
)

const sinkTimeout = 5 * time.Second

// storeSink writes settled drawings as snapshots of one page.
type storeSink struct {
	store  store.Store
	pageID string
}

func (s *storeSink) Save(doc *document.Drawing, report string) error {
	data, err := document.EncodeJSON(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", doc.Name, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	return s.store.SaveSnapshot(ctx, &store.Snapshot{
		PageID:  s.pageID,
		Drawing: doc.Name,
		Data:    data,
		Report:  report,
	})
}
