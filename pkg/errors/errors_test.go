// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package errors_test

import (
	stderrors "errors"
	"testing"

	projerr "github.com/sigil-dev/projector/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := projerr.New(
		projerr.CodeFactStoreSpecInvalid,
		"invalid specification",
		projerr.FieldQuery("itemsInRoot"),
		projerr.Field("given", "Application.Root"),
	)

	require.Error(t, err)
	assert.Equal(t, projerr.CodeFactStoreSpecInvalid, projerr.CodeOf(err))
	assert.True(t, projerr.HasCode(err, projerr.CodeFactStoreSpecInvalid))

	fields := projerr.FieldsOf(err)
	assert.Equal(t, "itemsInRoot", fields["query"])
	assert.Equal(t, "Application.Root", fields["given"])
}

func TestNewWithNoFields(t *testing.T) {
	err := projerr.New(projerr.CodeFactStoreSourceFailure, "connection lost")
	require.Error(t, err)
	assert.Equal(t, projerr.CodeFactStoreSourceFailure, projerr.CodeOf(err))
	assert.Contains(t, err.Error(), "connection lost")
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := projerr.Errorf(projerr.CodeFactStoreSourceFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, projerr.CodeFactStoreSourceFailure, projerr.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf / With
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("record missing")
	err := projerr.Wrap(
		root,
		projerr.CodeFactStoreFactNotFound,
		"loading fact",
		projerr.FieldFactHash("abc="),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, projerr.CodeFactStoreFactNotFound, projerr.CodeOf(err))
	assert.True(t, projerr.IsNotFound(err))
	assert.Equal(t, "abc=", projerr.FieldsOf(err)["fact_hash"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, projerr.Wrap(nil, projerr.CodeCLIInternal, "ignored"))
	assert.NoError(t, projerr.Wrapf(nil, projerr.CodeCLIInternal, "ignored %s", "arg"))
}

func TestWithAddsContextWithoutChangingCode(t *testing.T) {
	base := projerr.New(projerr.CodeProjectionLoadFailure, "replica unreachable")
	withCtx := projerr.With(base, projerr.FieldSubscriptionID("sub-1"))

	require.Error(t, withCtx)
	assert.Equal(t, projerr.CodeProjectionLoadFailure, projerr.CodeOf(withCtx))
	assert.Equal(t, "sub-1", projerr.FieldsOf(withCtx)["subscription_id"])
}

func TestWithDefaultsCodeForPlainErrors(t *testing.T) {
	err := projerr.With(stderrors.New("plain"), projerr.Field("k", "v"))
	assert.Equal(t, projerr.CodeCLIInternal, projerr.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

func TestClassification(t *testing.T) {
	tests := []struct {
		name     string
		code     projerr.Code
		invalid  bool
		notFound bool
		timeout  bool
		exit     int
	}{
		{"invalid fact", projerr.CodeFactStoreFactInvalid, true, false, false, 2},
		{"invalid yaml", projerr.CodeFactStoreDecodeInvalid, true, false, false, 2},
		{"missing fact", projerr.CodeFactStoreFactNotFound, false, true, false, 3},
		{"load timeout", projerr.CodeProjectionLoadTimeout, false, false, true, 4},
		{"source failure", projerr.CodeFactStoreSourceFailure, false, false, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := projerr.New(tt.code, tt.name)
			assert.Equal(t, tt.invalid, projerr.IsInvalidInput(err))
			assert.Equal(t, tt.notFound, projerr.IsNotFound(err))
			assert.Equal(t, tt.timeout, projerr.IsTimeout(err))
			assert.Equal(t, tt.exit, projerr.ExitCode(err))
		})
	}
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, projerr.Code(""), projerr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, projerr.Code(""), projerr.CodeOf(nil))
	assert.Equal(t, 0, projerr.ExitCode(nil))
}

func TestJoin(t *testing.T) {
	a := stderrors.New("a")
	b := stderrors.New("b")
	err := projerr.Join(a, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)
	assert.NoError(t, projerr.Join(nil, nil))
}
