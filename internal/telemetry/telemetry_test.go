package telemetry_test

import (
	"context"
	"testing"

	"orbitus-api/internal/logger"
	"orbitus-api/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithoutEndpoint(t *testing.T) {
	ctx := context.Background()

	tel, err := telemetry.Init(ctx, "", "orbitus-api", "test", logger.Discard())
	require.NoError(t, err)

	assert.Nil(t, tel.MeterProvider)
	require.NotNil(t, tel.Metrics)
	assert.NotPanics(t, func() { tel.Metrics.RecordLessonRegistered(ctx, 10) })
	assert.NoError(t, tel.Shutdown(ctx, logger.Discard()))
}
