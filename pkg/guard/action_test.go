package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbops/accessgate/pkg/authz"
	"github.com/vbops/accessgate/pkg/limiter"
)

type echoInput struct {
	Value string
}

func echoHandler(called *int) func(ctx context.Context, user authz.User, in echoInput) (string, error) {
	return func(ctx context.Context, user authz.User, in echoInput) (string, error) {
		*called++
		return user.ID + ":" + in.Value, nil
	}
}

func TestAction_NotAuthenticated(t *testing.T) {
	var called int
	g := New(limiter.NewMemoryLimiter(), &staticIdentity{}, tightConfig(), nil)
	run := Action(g, ActionMeta{Name: "updateClaim"}, echoHandler(&called))

	_, err := run(context.Background(), Request{Header: anonymousHeaders("1.2.3.4")}, echoInput{Value: "x"})

	require.Error(t, err)
	assert.True(t, IsNotAuthenticated(err))
	assert.Contains(t, err.Error(), "updateClaim")
	assert.Equal(t, 0, called, "the handler must not run for anonymous callers")
}

func TestAction_IdentityFailureBecomesNotAuthenticated(t *testing.T) {
	var called int
	g := New(limiter.NewMemoryLimiter(), &staticIdentity{err: errors.New("identity store down")}, tightConfig(), nil)
	run := Action(g, ActionMeta{Name: "updateClaim"}, echoHandler(&called))

	_, err := run(context.Background(), Request{Header: anonymousHeaders("1.2.3.4")}, echoInput{})

	assert.True(t, IsNotAuthenticated(err))
	assert.Equal(t, 0, called)
}

func TestAction_NotAuthorized(t *testing.T) {
	var called int
	identity := &staticIdentity{user: &authz.User{ID: "user_9", Type: "viewer"}}
	g := New(limiter.NewMemoryLimiter(), identity, tightConfig(), nil)
	run := Action(g, ActionMeta{Name: "approvePayment", AllowedTypes: []string{"admin"}}, echoHandler(&called))

	_, err := run(context.Background(), Request{Header: anonymousHeaders("1.2.3.4")}, echoInput{})

	require.Error(t, err)
	assert.True(t, IsNotAuthorized(err), "a type mismatch is a permission failure, not throttling")
	assert.False(t, IsRateLimited(err))
	assert.Equal(t, 0, called, "the handler must not run after an authorization denial")

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.NotEmpty(t, gerr.Ref, "authorization rejections carry a support reference")
	assert.NotContains(t, err.Error(), "viewer", "the message must not leak permission internals")
}

func TestAction_RateLimited(t *testing.T) {
	var called int
	g := New(limiter.NewMemoryLimiter(), &staticIdentity{user: testUser()}, tightConfig(), nil)
	run := Action(g, ActionMeta{Name: "updateClaim"}, echoHandler(&called))
	req := Request{Header: anonymousHeaders("1.2.3.4")}

	out, err := run(context.Background(), req, echoInput{Value: "first"})
	require.NoError(t, err)
	assert.Equal(t, "user_123:first", out)

	_, err = run(context.Background(), req, echoInput{Value: "second"})
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.False(t, IsNotAuthorized(err))

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.GreaterOrEqual(t, gerr.RetryAfterSeconds(), int64(1))
	assert.Equal(t, 1, called)
}

func TestAction_HandlerErrorPassesThroughUnchanged(t *testing.T) {
	handlerErr := errors.New("claim not found")
	g := New(limiter.NewMemoryLimiter(), &staticIdentity{user: testUser()}, tightConfig(), nil)
	run := Action(g, ActionMeta{Name: "updateClaim"}, func(ctx context.Context, user authz.User, in echoInput) (string, error) {
		return "", handlerErr
	})

	_, err := run(context.Background(), Request{Header: anonymousHeaders("1.2.3.4")}, echoInput{})

	assert.ErrorIs(t, err, handlerErr)
	assert.False(t, IsRateLimited(err))
	assert.False(t, IsNotAuthorized(err))
	assert.False(t, IsNotAuthenticated(err))
}

func TestReadOnlyAction_HigherBudget(t *testing.T) {
	g := New(limiter.NewMemoryLimiter(), &staticIdentity{user: testUser()}, tightConfig(), nil)
	req := Request{Header: anonymousHeaders("1.2.3.4")}

	var writes, reads int
	write := Action(g, ActionMeta{Name: "updateClaim"}, echoHandler(&writes))
	read := ReadOnlyAction(g, ActionMeta{Name: "lookupClaim"}, echoHandler(&reads))

	_, err := write(context.Background(), req, echoInput{})
	require.NoError(t, err)
	_, err = write(context.Background(), req, echoInput{})
	assert.True(t, IsRateLimited(err), "the write budget is spent")

	// the read-only policy counts separately and allows more
	for i := 0; i < 5; i++ {
		_, err := read(context.Background(), req, echoInput{})
		require.NoError(t, err, "read %d should fit the read-only budget", i+1)
	}
	assert.Equal(t, 5, reads)
}

func TestPublicAction_KeyedByAddress(t *testing.T) {
	var called int
	g := New(limiter.NewMemoryLimiter(), nil, tightConfig(), nil)
	run := PublicAction(g, ActionMeta{Name: "requestDemo"}, func(ctx context.Context, in echoInput) (string, error) {
		called++
		return in.Value, nil
	})

	_, err := run(context.Background(), Request{Header: anonymousHeaders("1.2.3.4")}, echoInput{Value: "a"})
	require.NoError(t, err)

	_, err = run(context.Background(), Request{Header: anonymousHeaders("1.2.3.4")}, echoInput{Value: "b"})
	assert.True(t, IsRateLimited(err), "the second call from one address exceeds a 1-point budget")

	out, err := run(context.Background(), Request{Header: anonymousHeaders("5.6.7.8")}, echoInput{Value: "c"})
	require.NoError(t, err, "a different address keeps its own budget")
	assert.Equal(t, "c", out)
	assert.Equal(t, 2, called)
}
