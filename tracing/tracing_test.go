package tracing_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/robertof/go-nordic-uart/device"
	"github.com/robertof/go-nordic-uart/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_ExportsSpans(t *testing.T) {
	var out bytes.Buffer

	shutdown, err := tracing.Setup(&out)
	require.NoError(t, err)

	_, span := tracing.StartSpan(context.Background(), "uart.connect", tracing.Device(device.Identity("aa:bb:cc:dd:ee:ff")))
	tracing.End(span, errors.New("connection refused"))

	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, out.String(), "uart.connect")
	assert.Contains(t, out.String(), "aa:bb:cc:dd:ee:ff")
	assert.Contains(t, out.String(), "connection refused")

	_, err = tracing.Setup(nil)
	require.NoError(t, err)
}
