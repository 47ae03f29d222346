package trigger

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom/domtest"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/sessionlog"
)

func button() Button {
	logger, _ := sessionlog.New(&bytes.Buffer{}, false)
	return Button{
		Poll:    time.Millisecond,
		Matches: func(u string) bool { return strings.Contains(u, "/contentlist/") },
		Log:     logger.Sugar(),
	}
}

func TestWaitReturnsWhenPressed(t *testing.T) {
	lib := domtest.NewLibrary()
	require.NoError(t, lib.Navigate(context.Background(), "https://www.amazon.com/hz/mycd/digital-console/contentlist/booksAll/"))

	done := make(chan error, 1)
	go func() { done <- button().Wait(context.Background(), lib) }()

	require.Eventually(t, func() bool { return lib.Installs() > 0 }, time.Second, time.Millisecond)
	lib.Press()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the button was pressed")
	}
}

func TestWaitSkipsOtherPages(t *testing.T) {
	lib := domtest.NewLibrary()
	require.NoError(t, lib.Navigate(context.Background(), "https://www.amazon.com/gp/css/homepage.html"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := button().Wait(ctx, lib)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, lib.Installs())
}
