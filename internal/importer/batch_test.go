package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kshao/chatvault/internal/config"
	"github.com/kshao/chatvault/internal/crypto"
	"github.com/kshao/chatvault/internal/models"
	"github.com/kshao/chatvault/internal/sanitize"
)

type memorySaver struct {
	mu            sync.Mutex
	conversations []models.Conversation
	messages      []models.ChatMessage
	calls         int
}

func (m *memorySaver) SaveBatch(_ context.Context, convs []models.Conversation, msgs []models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.conversations = append(m.conversations, convs...)
	m.messages = append(m.messages, msgs...)
	return nil
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newBatchImporter(saver Saver, workers int) *BatchImporter {
	limits := config.DefaultLimits()
	san := sanitize.New(limits.MaxRenderLength)
	return NewBatchImporter(newTestRegistry(limits), saver, san, workers)
}

func TestBatchImportMixedFormats(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFixture(t, dir, "chatgpt.json", chatgptExport),
		writeFixture(t, dir, "claude.json", claudeExport),
		writeFixture(t, dir, "whatsapp.txt", whatsappLog),
	}

	saver := &memorySaver{}
	report, err := newBatchImporter(saver, 4).ImportFiles(context.Background(), paths)
	require.NoError(t, err)

	require.NotEmpty(t, report.BatchID)
	require.Equal(t, 3, report.Metadata.TotalFilesProcessed)
	require.Equal(t, 3, report.Metadata.SuccessfulImports)
	require.Zero(t, report.Metadata.FailedImports)
	require.Equal(t, 3, report.Metadata.TotalConversations)
	require.Equal(t, map[string]int{"chatgpt": 1, "claude": 1, "whatsapp": 1}, report.Metadata.DetectedFormats)
	require.Equal(t, 3, saver.calls)
	require.Len(t, saver.conversations, 3)
	require.GreaterOrEqual(t, report.Metadata.ProcessingTimeMS, int64(0))
}

func TestBatchImportPartialFailure(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFixture(t, dir, "good.json", chatgptExport),
		writeFixture(t, dir, "garbage.txt", "nothing recognizable here"),
		filepath.Join(dir, "missing.json"),
	}

	saver := &memorySaver{}
	report, err := newBatchImporter(saver, 2).ImportFiles(context.Background(), paths)
	require.NoError(t, err)

	require.Equal(t, 3, report.Metadata.TotalFilesProcessed)
	require.Equal(t, 1, report.Metadata.SuccessfulImports)
	require.Equal(t, 2, report.Metadata.FailedImports)
	require.Len(t, report.Errors, 2)
	for _, e := range report.Errors {
		require.Contains(t, e, ":")
	}
	require.Equal(t, 1, saver.calls)
}

func TestBatchImportNilSaver(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeFixture(t, dir, "chatgpt.json", chatgptExport)}

	report, err := newBatchImporter(nil, 1).ImportFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Equal(t, 1, report.Metadata.SuccessfulImports)
	require.Len(t, report.Conversations, 1)
	require.Len(t, report.Messages, 2)
}

func TestBatchImportCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	var paths []string
	for i := 0; i < 50; i++ {
		paths = append(paths, writeFixture(t, dir, fmt.Sprintf("f%d.json", i), chatgptExport))
	}

	_, err := newBatchImporter(&memorySaver{}, 1).ImportFiles(ctx, paths)
	require.ErrorIs(t, err, context.Canceled)
}

type lockedSaver struct{}

func (lockedSaver) SaveBatch(context.Context, []models.Conversation, []models.ChatMessage) error {
	return crypto.ErrNotInitialized
}

func TestBatchImportUninitializedKeyIsFatal(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeFixture(t, dir, "chatgpt.json", chatgptExport)}

	_, err := newBatchImporter(lockedSaver{}, 1).ImportFiles(context.Background(), paths)
	require.ErrorIs(t, err, crypto.ErrNotInitialized)
}

func TestBatchImportErrorNamesAreSanitized(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "bad<file>.txt", "nothing recognizable here")

	saver := &memorySaver{}
	report, err := newBatchImporter(saver, 1).ImportFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	require.NotContains(t, report.Errors[0], "<")
	require.Contains(t, report.Errors[0], "bad_file_.txt")
}
