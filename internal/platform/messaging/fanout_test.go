package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	got []interface{}
	err error
}

func (r *recordingSink) Publish(_ context.Context, v interface{}) error {
	r.got = append(r.got, v)
	return r.err
}

func TestFanout_DeliversToAll(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	require.NoError(t, Fanout{a, nil, b}.Publish(context.Background(), "msg"))
	assert.Equal(t, []interface{}{"msg"}, a.got)
	assert.Equal(t, []interface{}{"msg"}, b.got)
}

func TestFanout_ContinuesPastFailure(t *testing.T) {
	boom := errors.New("broker down")
	failing, ok := &recordingSink{err: boom}, &recordingSink{}

	err := Fanout{failing, ok}.Publish(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.got, 1)
}

func TestFanout_Empty(t *testing.T) {
	assert.NoError(t, Fanout{}.Publish(context.Background(), 1))
}
