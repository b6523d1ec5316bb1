package selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/instflow/internal/contracts"
)

func TestLoadClassification_InvalidDate(t *testing.T) {
	repo := NewRepository(nil)

	_, err := repo.LoadClassification(context.Background(), contracts.MarketTSE, "2024/07/05")
	assert.ErrorContains(t, err, "invalid date")
}
