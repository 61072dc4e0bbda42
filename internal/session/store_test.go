package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/llm"
	"github.com/dvloznov/finansmanager/internal/llm/llmtest"
	"github.com/dvloznov/finansmanager/internal/nlu"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T, model llm.Model, opts Options) *Store {
	t.Helper()
	s := NewStore(model, opts, zerolog.Nop())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func echoHistory(_ llm.ConversationConfig, history []llm.Turn, message string) (string, error) {
	return fmt.Sprintf(`{"turns":%d,"message":%q}`, len(history), message), nil
}

func TestStore_CreatesOncePerUser(t *testing.T) {
	model := &llmtest.Model{Reply: echoHistory}
	s := newTestStore(t, model, Options{})

	first, err := s.GetOrCreate(context.Background(), "u1", "instr")
	require.NoError(t, err)
	second, err := s.GetOrCreate(context.Background(), "u1", "instr")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, model.Conversations(), 1)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ProcessKeepsHistory(t *testing.T) {
	model := &llmtest.Model{Reply: echoHistory}
	s := newTestStore(t, model, Options{})
	ctx := context.Background()

	reply, err := s.Process(ctx, "u1", "instr", "spent 50")
	require.NoError(t, err)
	assert.Equal(t, `{"turns":0,"message":"spent 50"}`, reply)

	reply, err = s.Process(ctx, "u1", "instr", "on groceries")
	require.NoError(t, err)
	assert.Equal(t, `{"turns":2,"message":"on groceries"}`, reply)

	// Another user gets a fresh conversation.
	reply, err = s.Process(ctx, "u2", "instr", "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"turns":0,"message":"hello"}`, reply)
	assert.Len(t, model.Conversations(), 2)
}

func TestStore_ConcurrentCreation(t *testing.T) {
	model := &llmtest.Model{Reply: echoHistory}
	s := newTestStore(t, model, Options{})

	const workers = 32
	sessions := make([]*Session, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := s.GetOrCreate(context.Background(), "same-user", "instr")
			assert.NoError(t, err)
			sessions[i] = sess
		}(i)
	}
	wg.Wait()

	for _, sess := range sessions[1:] {
		assert.Same(t, sessions[0], sess)
	}
	assert.Equal(t, 1, s.Len())
}

func TestStore_ConcurrentProcessOrdersHistory(t *testing.T) {
	model := &llmtest.Model{Reply: echoHistory}
	s := newTestStore(t, model, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Process(context.Background(), "u1", "instr", fmt.Sprintf("m%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	sess, err := s.GetOrCreate(context.Background(), "u1", "instr")
	require.NoError(t, err)
	assert.Len(t, sess.History(), 20)
}

func TestStore_UpstreamFailures(t *testing.T) {
	boom := errors.New("quota exceeded")

	s := newTestStore(t, &llmtest.Model{StartErr: boom}, Options{})
	_, err := s.Process(context.Background(), "u1", "instr", "hi")
	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len(), "failed creation must not store a session")

	s = newTestStore(t, &llmtest.Model{Reply: func(llm.ConversationConfig, []llm.Turn, string) (string, error) {
		return "", boom
	}}, Options{})
	_, err = s.Process(context.Background(), "u1", "instr", "hi")
	require.ErrorAs(t, err, &upstream)
}

func TestStore_CapacityEvictsLeastRecentlyUsed(t *testing.T) {
	model := &llmtest.Model{Reply: echoHistory}
	s := newTestStore(t, model, Options{MaxSessions: 2})
	ctx := context.Background()

	_, err := s.Process(ctx, "a", "instr", "x")
	require.NoError(t, err)
	_, err = s.Process(ctx, "b", "instr", "x")
	require.NoError(t, err)
	// Touch a so b becomes the least recently used.
	_, err = s.Process(ctx, "a", "instr", "y")
	require.NoError(t, err)

	_, err = s.Process(ctx, "c", "instr", "x")
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	ids := map[string]bool{}
	for id := range s.items.Items() {
		ids[id] = true
	}
	assert.True(t, ids["a"])
	assert.True(t, ids["c"])
	assert.False(t, ids["b"])
}

func TestStore_TTLExpiry(t *testing.T) {
	model := &llmtest.Model{Reply: echoHistory}
	s := newTestStore(t, model, Options{TTL: 20 * time.Millisecond, CleanupInterval: 5 * time.Millisecond})

	_, err := s.Process(context.Background(), "u1", "instr", "x")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.items.ItemCount() == 0 }, time.Second, 5*time.Millisecond)

	// A new message after expiry starts a fresh conversation.
	reply, err := s.Process(context.Background(), "u1", "instr", "again")
	require.NoError(t, err)
	assert.Equal(t, `{"turns":0,"message":"again"}`, reply)
	assert.Len(t, model.Conversations(), 2)
}

func TestStore_Evict(t *testing.T) {
	model := &llmtest.Model{Reply: echoHistory}
	s := newTestStore(t, model, Options{})

	_, err := s.Process(context.Background(), "u1", "instr", "x")
	require.NoError(t, err)
	s.Evict("u1")
	assert.Equal(t, 0, s.Len())
}

func TestStore_PolicyRefreshCarriesHistory(t *testing.T) {
	model := &llmtest.Model{Reply: echoHistory}
	s := newTestStore(t, model, Options{Policy: PolicyRefresh})
	ctx := context.Background()

	_, err := s.Process(ctx, "u1", "instr v1", "first")
	require.NoError(t, err)
	reply, err := s.Process(ctx, "u1", "instr v2", "second")
	require.NoError(t, err)
	assert.Equal(t, `{"turns":2,"message":"second"}`, reply)

	convs := model.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, "instr v2", convs[1].Config().SystemInstruction)
	assert.Equal(t, llm.JSONMIMEType, convs[1].Config().ResponseMIMEType)

	sess, err := s.GetOrCreate(ctx, "u1", "ignored")
	require.NoError(t, err)
	assert.Equal(t, NewConfig(llm.DefaultModelName, "instr v2").Version, sess.Config().Version)
	assert.Equal(t, 1, sess.Refreshes())
}

func TestStore_PolicyPinKeepsOriginal(t *testing.T) {
	model := &llmtest.Model{Reply: echoHistory}
	s := newTestStore(t, model, Options{Policy: PolicyPin})
	ctx := context.Background()

	_, err := s.Process(ctx, "u1", "instr v1", "first")
	require.NoError(t, err)
	_, err = s.Process(ctx, "u1", "instr v2", "second")
	require.NoError(t, err)

	convs := model.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, "instr v1", convs[0].Config().SystemInstruction)
}

func TestStore_PolicyRejectFailsFast(t *testing.T) {
	model := &llmtest.Model{Reply: echoHistory}
	s := newTestStore(t, model, Options{Policy: PolicyReject})
	ctx := context.Background()

	_, err := s.Process(ctx, "u1", "instr v1", "first")
	require.NoError(t, err)
	_, err = s.Process(ctx, "u1", "instr v2", "second")
	assert.ErrorIs(t, err, ErrConfigMismatch)
}

func TestStore_NLUInstructionStableAcrossMessages(t *testing.T) {
	contract := nlu.ContractFor(&domain.UserProfile{Currency: "GBP", Categories: []string{"Groceries"}})
	messages := []string{"spent 50", "on groceries", "from Checking"}

	for _, policy := range []Policy{PolicyRefresh, PolicyPin, PolicyReject} {
		t.Run(string(policy), func(t *testing.T) {
			model := &llmtest.Model{Reply: echoHistory}
			s := newTestStore(t, model, Options{Policy: policy})
			ctx := context.Background()

			for i, msg := range messages {
				reply, err := s.Process(ctx, "u1", nlu.BuildInstruction(contract, msg), msg)
				require.NoError(t, err, "message %d", i+1)
				assert.Equal(t, fmt.Sprintf(`{"turns":%d,"message":%q}`, 2*i, msg), reply)
			}

			assert.Len(t, model.Conversations(), 1)
			sess, err := s.GetOrCreate(ctx, "u1", "")
			require.NoError(t, err)
			assert.Equal(t, 0, sess.Refreshes())
			assert.Len(t, sess.History(), 2*len(messages))
		})
	}
}

func TestStore_NLUProfileChangeIsAMismatch(t *testing.T) {
	model := &llmtest.Model{Reply: echoHistory}
	s := newTestStore(t, model, Options{Policy: PolicyReject})
	ctx := context.Background()

	before := nlu.ContractFor(&domain.UserProfile{Currency: "GBP"})
	after := nlu.ContractFor(&domain.UserProfile{Currency: "EUR"})

	_, err := s.Process(ctx, "u1", nlu.BuildInstruction(before, "spent 50"), "spent 50")
	require.NoError(t, err)
	_, err = s.Process(ctx, "u1", nlu.BuildInstruction(after, "spent 60"), "spent 60")
	assert.ErrorIs(t, err, ErrConfigMismatch)
}

func TestStore_Close(t *testing.T) {
	s := NewStore(&llmtest.Model{}, Options{CleanupInterval: time.Millisecond}, zerolog.Nop())
	_, err := s.GetOrCreate(context.Background(), "u1", "instr")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.GetOrCreate(context.Background(), "u1", "instr")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, s.Len())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyRefresh, p)

	p, err = ParsePolicy("PIN")
	require.NoError(t, err)
	assert.Equal(t, PolicyPin, p)

	_, err = ParsePolicy("sticky")
	assert.Error(t, err)
}
