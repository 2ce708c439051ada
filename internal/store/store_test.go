package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kshao/chatvault/internal/crypto"
	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/models"
)

const testIterations = 100000

func openTestStore(t *testing.T, dir, password string) *Store {
	t.Helper()
	svc := crypto.NewService(testIterations)
	st, err := Open(dir, svc)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Unlock(password))
	return st
}

func sampleBatch() ([]models.Conversation, []models.ChatMessage) {
	conv := models.Conversation{
		ID:          "c1",
		SourceApp:   "ChatGPT",
		ChatType:    models.ChatTypeLLM,
		DisplayName: "Trip planning",
		StartTime:   1700000000,
		EndTime:     1700000300,
		Tags:        []string{"travel"},
	}
	msgs := []models.ChatMessage{
		{MessageID: "m1", ConversationID: "c1", TimestampUTC: 1700000000, Author: "User", Content: "Hello", ContentType: models.ContentTypeText},
		{MessageID: "m2", ConversationID: "c1", TimestampUTC: 1700000300, Author: "ChatGPT", Content: "Hi there", ContentType: models.ContentTypeText},
	}
	return []models.Conversation{conv}, msgs
}

func TestSaveBatchRoundTrip(t *testing.T) {
	st := openTestStore(t, t.TempDir(), "correct horse")
	convs, msgs := sampleBatch()
	require.NoError(t, st.SaveBatch(context.Background(), convs, msgs))

	got, err := st.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Trip planning", got[0].DisplayName)
	require.Equal(t, []string{"travel"}, got[0].Tags)

	gotMsgs, err := st.Messages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, gotMsgs, 2)
	require.Equal(t, "Hello", gotMsgs[0].Content)
	require.Equal(t, "ChatGPT", gotMsgs[1].Author)
}

func TestSaveBatchUpsertIsIdempotent(t *testing.T) {
	st := openTestStore(t, t.TempDir(), "pw")
	convs, msgs := sampleBatch()
	require.NoError(t, st.SaveBatch(context.Background(), convs, msgs))
	require.NoError(t, st.SaveBatch(context.Background(), convs, msgs))

	n, err := st.CountConversations(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	gotMsgs, err := st.Messages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, gotMsgs, 2)
}

func TestFieldsAreEncryptedAtRest(t *testing.T) {
	st := openTestStore(t, t.TempDir(), "pw")
	convs, msgs := sampleBatch()
	require.NoError(t, st.SaveBatch(context.Background(), convs, msgs))

	var name, content string
	require.NoError(t, st.db.QueryRow("SELECT display_name FROM conversations WHERE id = 'c1'").Scan(&name))
	require.NoError(t, st.db.QueryRow("SELECT content FROM messages WHERE message_id = 'm1'").Scan(&content))
	require.NotEqual(t, "Trip planning", name)
	require.NotEqual(t, "Hello", content)
	require.NotContains(t, content, "Hello")
}

func TestUnlockWrongPassword(t *testing.T) {
	dir := t.TempDir()
	st := openTestStore(t, dir, "right")
	convs, msgs := sampleBatch()
	require.NoError(t, st.SaveBatch(context.Background(), convs, msgs))
	require.NoError(t, st.Close())

	svc := crypto.NewService(testIterations)
	reopened, err := Open(dir, svc)
	require.NoError(t, err)
	defer reopened.Close()

	require.ErrorIs(t, reopened.Unlock("wrong"), ErrWrongPassword)
	require.False(t, svc.Ready())

	// The right password still works after a failed attempt.
	require.NoError(t, reopened.Unlock("right"))
	got, err := reopened.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Trip planning", got[0].DisplayName)
}

func TestSaveBatchRejectsInvalidModels(t *testing.T) {
	st := openTestStore(t, t.TempDir(), "pw")

	convs, msgs := sampleBatch()
	convs[0].StartTime = convs[0].EndTime + 1
	err := st.SaveBatch(context.Background(), convs, msgs)
	require.Error(t, err)
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	msgConvs, badMsgs := sampleBatch()
	badMsgs[0].MessageID = ""
	err = st.SaveBatch(context.Background(), msgConvs, badMsgs)
	require.Error(t, err)
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	n, err := st.CountConversations(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSaveBatchRequiresUnlock(t *testing.T) {
	svc := crypto.NewService(testIterations)
	st, err := Open(t.TempDir(), svc)
	require.NoError(t, err)
	defer st.Close()

	convs, msgs := sampleBatch()
	require.ErrorIs(t, st.SaveBatch(context.Background(), convs, msgs), crypto.ErrNotInitialized)

	n, err := st.CountConversations(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}
