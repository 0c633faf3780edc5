package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cottonadvisor/internal/forest"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/config"
)

func TestModelSource(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.ModelDir = "/srv/models"

	src, err := ModelSource(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, forest.DirSource{Dir: "/srv/models"}, src)

	c.ModelBucket = "cotton-models"
	c.S3BaseEndpoint = "http://127.0.0.1:9000"
	c.S3RootUser, c.S3RootPassword = "minio", "minio123"
	src, err = ModelSource(context.Background(), c)
	require.NoError(t, err)
	assert.IsType(t, &forest.S3Source{}, src)
}

func TestInitSentry_DisabledWithoutDSN(t *testing.T) {
	on, err := initSentry(&config.Config{})
	require.NoError(t, err)
	assert.False(t, on)
}
