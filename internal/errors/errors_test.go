package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := Configuration("duplicate detector name \"iqr\"")
	wrapped := Wrap(base, "building registry")

	assert.Equal(t, CodeConfiguration, GetCode(wrapped))
	assert.Contains(t, wrapped.Error(), "building registry")
	assert.Contains(t, wrapped.Error(), "duplicate detector name")
	assert.True(t, stderrors.Is(wrapped, base))
}

func TestWrapPlainError(t *testing.T) {
	err := Wrap(stderrors.New("boom"), "loading")
	assert.Equal(t, CodeInternal, GetCode(err))
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Nil(t, Wrapf(nil, "nothing %d", 1))
}

func TestHasCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{
			name: "direct",
			err:  DataLoad("CSV: x.csv", stderrors.New("no such file")),
			code: CodeDataLoad,
			want: true,
		},
		{
			name: "behind fmt wrapping",
			err:  fmt.Errorf("cli: %w", ReportAssembly("bad")),
			code: CodeReportAssembly,
			want: true,
		},
		{
			name: "inner code under a different outer code",
			err:  WithCode(CodeInternal, Wrap(IndexValidation("iqr", 2, 10), "normalizing")),
			code: CodeIndexValidation,
			want: true,
		},
		{
			name: "plain error",
			err:  stderrors.New("plain"),
			code: CodeDataLoad,
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			code: CodeDataLoad,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCode(tt.err, tt.code))
		})
	}
}

func TestConstructorsMessages(t *testing.T) {
	assert.Equal(t,
		`autoencoder requires "deep-learning" which is not available in this environment`,
		DependencyUnavailable("autoencoder", "deep-learning").Error())

	assert.Equal(t,
		"iqr returned 3 anomaly indices outside [0, 100)",
		IndexValidation("iqr", 3, 100).Error())

	timeout := DetectorTimeout("genetic_algorithm", time.Second, nil)
	assert.Equal(t, "genetic_algorithm exceeded its timeout of 1s", timeout.Error())

	deadline := DetectorTimeout("kmeans", 0, nil)
	assert.Equal(t, "kmeans did not finish before the run deadline", deadline.Error())

	cancelled := DetectorCancelled("kmeans", context.Canceled)
	assert.Equal(t, CodeDetectorTimeout, cancelled.Code)
	assert.Equal(t, "kmeans was cancelled before it finished: context canceled", cancelled.Error())
	assert.True(t, stderrors.Is(cancelled, context.Canceled))

	cause := stderrors.New("singular matrix")
	exec := DetectorExecution("autoencoder", cause)
	assert.Equal(t, CodeDetectorExecution, exec.Code)
	assert.True(t, stderrors.Is(exec, cause))
	assert.Equal(t, "UNKNOWN", GetCode(cause))
}
