package extract

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	errs "statusbak/pkg/errors"
	"statusbak/pkg/logger"
	"statusbak/pkg/models"
)

const (
	statusItemSelector = ".status-item"
	streamSelector     = ".stream-items"
	wrapperSelector    = "#wrapper"
)

// PageResult is the outcome of extracting one timeline page.
type PageResult struct {
	Statuses []models.Status
	// Items counts every status item seen on the page, including
	// nested repost originals and failed items.
	Items int
	// Failures counts items dropped by per-item errors.
	Failures int
}

// Driver iterates the status items of one page, excluding nested
// repost originals, and isolates per-item failures so one bad status
// never drops the rest of the page.
type Driver struct {
	normalizer *Normalizer
	log        logger.Logger
}

// NewDriver creates a page extraction driver.
func NewDriver(normalizer *Normalizer) *Driver {
	return &Driver{
		normalizer: normalizer,
		log:        logger.GetLogger(),
	}
}

// ExtractPage extracts every top-level status on the page in DOM
// order. Nested repost originals are skipped here: they surface only
// through their parent's Reshared field.
func (d *Driver) ExtractPage(ctx context.Context, doc *goquery.Document) (*PageResult, error) {
	container := doc.Find(streamSelector).First()
	if container.Length() == 0 {
		container = doc.Find(wrapperSelector).First()
	}
	if container.Length() == 0 {
		return nil, errs.New(errs.ErrorTypeMissingElement, "status container not found on page")
	}

	result := &PageResult{}
	items := container.Find(statusItemSelector)
	result.Items = items.Length()

	d.log.DebugWithFields("extracting page", map[string]interface{}{
		"items": result.Items,
	})

	items.EachWithBreak(func(i int, item *goquery.Selection) bool {
		if ctx.Err() != nil {
			return false
		}
		if IsNestedOriginal(item) {
			return true
		}

		status, err := d.normalizer.Normalize(ctx, item)
		if err != nil {
			result.Failures++
			d.log.WarnWithFields("dropping status item", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			return true
		}
		result.Statuses = append(result.Statuses, *status)
		return true
	})

	if err := ctx.Err(); err != nil {
		return result, errs.Wrap(errs.ErrorTypeExtractionTimeout, "page extraction interrupted", err)
	}

	d.log.InfoWithFields("page extracted", map[string]interface{}{
		"statuses": len(result.Statuses),
		"failures": result.Failures,
	})
	return result, nil
}
