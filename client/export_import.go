package client

import (
	"context"
	"fmt"

	"github.com/studynexus/nexus/internal/models"
)

// Export retrieves a full-fidelity snapshot of the collection.
func (c *Client) Export(ctx context.Context) (*models.ExportFormat, error) {
	var result models.ExportFormat
	if err := c.get(ctx, "/api/v1/export", nil, &result); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	return &result, nil
}

// Import replaces the collection with a snapshot.
func (c *Client) Import(ctx context.Context, data *models.ExportFormat) (*models.ImportResult, error) {
	var result models.ImportResult
	if err := c.post(ctx, "/api/v1/import", data, &result); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	return &result, nil
}
