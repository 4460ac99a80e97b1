package exec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

type countingTask struct {
	polls    int
	wakeSelf bool
	doneAt   int
}

func (t *countingTask) Poll(cx *Context) Result[struct{}] {
	t.polls++
	if t.doneAt > 0 && t.polls >= t.doneAt {
		return Ready(struct{}{})
	}
	if t.wakeSelf {
		cx.WakeSelf()
	}
	return Pending[struct{}]()
}

func TestExecutorPollsOnlyWokenTasks(t *testing.T) {
	idle, busy := &countingTask{}, &countingTask{wakeSelf: true}
	ex := New(clock.NewMock()).Add("idle", idle).Add("busy", busy)
	for i := 0; i < 3; i++ {
		require.True(t, ex.Step())
	}
	require.Equal(t, 1, idle.polls)
	require.Equal(t, 3, busy.polls)

	ex.Wake(1)
	require.True(t, ex.Step())
	require.Equal(t, 2, idle.polls)
	require.Equal(t, 4, busy.polls)
}

func TestExecutorRetiresCompletedTasks(t *testing.T) {
	task := &countingTask{wakeSelf: true, doneAt: 2}
	failing := FutureFunc[struct{}](func(*Context) Result[struct{}] {
		return Failed[struct{}](errors.New("boom"))
	})
	ex := New(clock.NewMock()).Add("task", task).Add("failing", failing)
	ex.Step()
	ex.Step()
	require.True(t, ex.Done())
	require.False(t, ex.Step())
	require.Equal(t, 2, task.polls)

	st := ex.Tasks()
	require.Len(t, st, 2)
	require.True(t, st[0].Done)
	require.NoError(t, st[0].Err)
	require.EqualError(t, st[1].Err, "boom")
}

func TestExecutorWakeFromNotify(t *testing.T) {
	var n Notify
	flag := false
	ex := New(clock.NewMock())
	waiter := Spawn[struct{}](ex, "waiter", n.Until(func() bool { return flag }))
	setter := Spawn[struct{}](ex, "setter", Then[struct{}, struct{}](Yield(), func(struct{}) Future[struct{}] {
		return Do(func() error {
			flag = true
			n.NotifyAll()
			return nil
		})
	}))

	ex.Step()
	require.False(t, waiter.Done())
	ex.Step()
	require.True(t, setter.Done())
	require.False(t, waiter.Done())
	ex.Step()
	require.True(t, waiter.Done())
	require.Equal(t, 2, waiter.Polls())
}

func TestSleep(t *testing.T) {
	mock := clock.NewMock()
	ex := New(mock)
	h := Spawn[struct{}](ex, "sleep", Sleep(100*time.Millisecond))

	ex.Step()
	require.Equal(t, 1, h.Polls())
	mock.Add(50 * time.Millisecond)
	require.False(t, ex.Step())
	require.Equal(t, 1, h.Polls())
	mock.Add(50 * time.Millisecond)
	require.True(t, ex.Step())
	require.True(t, h.Done())
	require.Equal(t, 2, h.Polls())
}

func TestWithTimeout(t *testing.T) {
	t.Run("inner first", func(t *testing.T) {
		mock := clock.NewMock()
		ex := New(mock)
		h := Spawn[struct{}](ex, "t", WithTimeout[struct{}](100*time.Millisecond, Sleep(50*time.Millisecond)))
		ex.Step()
		mock.Add(50 * time.Millisecond)
		ex.Step()
		require.True(t, h.Result().Ok())
	})

	t.Run("deadline first", func(t *testing.T) {
		mock := clock.NewMock()
		ex := New(mock)
		h := Spawn[struct{}](ex, "t", WithTimeout[struct{}](100*time.Millisecond, Sleep(time.Second)))
		ex.Step()
		mock.Add(100 * time.Millisecond)
		ex.Step()
		require.True(t, h.Done())
		require.ErrorIs(t, h.Result().Err, ErrTimeout)
	})

	t.Run("tie goes to inner", func(t *testing.T) {
		mock := clock.NewMock()
		ex := New(mock)
		h := Spawn[struct{}](ex, "t", WithTimeout[struct{}](100*time.Millisecond, Sleep(100*time.Millisecond)))
		ex.Step()
		mock.Add(100 * time.Millisecond)
		ex.Step()
		require.True(t, h.Result().Ok())
	})
}

func TestLoopStopsOnError(t *testing.T) {
	var count int
	errStop := errors.New("stop")
	ex := New(clock.NewMock())
	h := Spawn[struct{}](ex, "loop", Loop(func() Task {
		return Do(func() error {
			if count++; count == 3 {
				return errStop
			}
			return nil
		})
	}))
	for i := 0; i < 5 && !h.Done(); i++ {
		ex.Step()
	}
	require.True(t, h.Done())
	require.ErrorIs(t, h.Result().Err, errStop)
	require.Equal(t, 3, count)
}

func TestSeqAndMap(t *testing.T) {
	var order []int
	step := func(n int) Task {
		return Do(func() error {
			order = append(order, n)
			return nil
		})
	}
	ex := New(clock.NewMock())
	h := Spawn(ex, "seq", Map(Then(Seq(step(1), Yield(), step(2)), func(struct{}) Future[int] {
		return Value(len(order))
	}), func(n int) int { return n * 10 }))
	ex.Step()
	require.Equal(t, []int{1}, order)
	ex.Step()
	require.True(t, h.Done())
	require.Equal(t, 20, h.Result().Value)
}

func TestRun(t *testing.T) {
	ex := New(nil)
	Spawn[struct{}](ex, "sleep", Sleep(5*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, ex.Run(ctx))
	require.True(t, ex.Done())
}

func TestRunCanceled(t *testing.T) {
	ex := New(nil).Add("forever", &countingTask{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, ex.Run(ctx), context.DeadlineExceeded)
}

func TestAddTooManyTasks(t *testing.T) {
	ex := New(clock.NewMock())
	for i := 0; i < MaxTasks; i++ {
		ex.Add("t", &countingTask{})
	}
	require.PanicsWithValue(t, ErrTooManyTasks, func() {
		ex.Add("overflow", &countingTask{})
	})
}
