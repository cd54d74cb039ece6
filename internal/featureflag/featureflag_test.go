package featureflag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

func TestRequire(t *testing.T) {
	ctx := context.Background()
	acme := repository.NewAppIdentifier("", "acme")
	other := repository.NewAppIdentifier("", "other")

	flags := NewStatic().Enable(FeatureMFA, acme)
	assert.NoError(t, Require(ctx, flags, acme, FeatureMFA))
	assert.ErrorIs(t, Require(ctx, flags, other, FeatureMFA), repository.ErrFeatureDisabled)

	flags.EnableAll(FeatureMFA)
	assert.NoError(t, Require(ctx, flags, other, FeatureMFA))
}
