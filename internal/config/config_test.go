package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mapGetter map[string]string

func (m mapGetter) GetString(key string) string { return m[key] }

func TestFromGetter_Defaults(t *testing.T) {
	cfg, err := FromGetter(mapGetter{})
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.AppPort)
	require.Equal(t, DriverMinio, cfg.Storage.Driver)
	require.Equal(t, "images", cfg.Storage.Bucket)
	require.Equal(t, "dehazed_", cfg.DerivedPrefix)
	require.Equal(t, "/images/", cfg.SamplePrefix)
	require.Equal(t, 50, cfg.SampleCount)
	require.Equal(t, ProcessorPassthrough, cfg.Processor.Kind)
	require.Equal(t, 30*time.Second, cfg.FetchTimeout)
	require.Equal(t, int64(32<<20), cfg.MaxImageBytes)
	require.False(t, cfg.Storage.UseSSL)
	require.Empty(t, cfg.Kafka.Broker)
}

func TestFromGetter_Overrides(t *testing.T) {
	cfg, err := FromGetter(mapGetter{
		"STORAGE_DRIVER":      "S3",
		"STORAGE_USE_SSL":     "true",
		"STORAGE_PUBLIC_BASE": "https://cdn.example.com/",
		"PROCESSOR":           "remote",
		"MODEL_URL":           "http://model:8000/dehaze",
		"MODEL_TIMEOUT":       "5s",
		"SAMPLE_COUNT":        "10",
	})
	require.NoError(t, err)

	require.Equal(t, DriverS3, cfg.Storage.Driver)
	require.True(t, cfg.Storage.UseSSL)
	require.Equal(t, "https://cdn.example.com", cfg.Storage.PublicBase)
	require.Equal(t, 5*time.Second, cfg.Processor.Timeout)
	require.Equal(t, 10, cfg.SampleCount)
}

func TestFromGetter_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  mapGetter
	}{
		{name: "bad bool", env: mapGetter{"STORAGE_USE_SSL": "maybe"}},
		{name: "bad int", env: mapGetter{"SAMPLE_COUNT": "ten"}},
		{name: "bad duration", env: mapGetter{"FETCH_TIMEOUT": "soon"}},
		{name: "unknown driver", env: mapGetter{"STORAGE_DRIVER": "ftp"}},
		{name: "unknown processor", env: mapGetter{"PROCESSOR": "magic"}},
		{name: "remote without url", env: mapGetter{"PROCESSOR": "remote"}},
		{name: "zero max bytes", env: mapGetter{"MAX_IMAGE_BYTES": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromGetter(tt.env)
			require.Error(t, err)
		})
	}
}
