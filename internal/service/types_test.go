package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_Fraction(t *testing.T) {
	assert.Equal(t, 0.0, Progress{Completed: 0, Total: 4}.Fraction())
	assert.Equal(t, 0.5, Progress{Completed: 2, Total: 4}.Fraction())
	assert.Equal(t, 1.0, Progress{Completed: 4, Total: 4, Done: true}.Fraction())
	assert.Equal(t, 0.0, Progress{}.Fraction())
	assert.Equal(t, 1.0, Progress{Done: true}.Fraction())
}

func TestNamingPolicies(t *testing.T) {
	suffix := SuffixNaming{Suffix: "_translated"}
	assert.Equal(t, "dir/name_translated.srt", suffix.OutputPath("dir/name.srt"))
	assert.True(t, suffix.IsOutput("dir/name_translated.srt"))
	assert.False(t, suffix.IsOutput("dir/name.srt"))

	infix := LanguageInfixNaming{Tag: "esp"}
	assert.Equal(t, "dir/name.esp.srt", infix.OutputPath("dir/name.srt"))
	assert.True(t, infix.IsOutput("dir/name.esp.srt"))
	assert.False(t, infix.IsOutput("dir/espresso.srt"))
}

func TestNewNamingPolicy(t *testing.T) {
	p, err := NewNamingPolicy("suffix", "", "")
	require.NoError(t, err)
	assert.Equal(t, SuffixNaming{Suffix: DefaultSuffix}, p)

	p, err = NewNamingPolicy("language", "", "fra")
	require.NoError(t, err)
	assert.Equal(t, LanguageInfixNaming{Tag: "fra"}, p)

	_, err = NewNamingPolicy("numbered", "", "")
	assert.True(t, IsErrorType(err, ErrConfig))
}

func TestBatchResult_Summary(t *testing.T) {
	r := &BatchResult{Results: []JobResult{
		{InputPath: "a.srt", OutputPath: "a.esp.srt"},
		{InputPath: "b.srt", Error: "[FileRead] boom"},
	}}

	assert.True(t, r.HasFailures())
	assert.Equal(t,
		"1 of 2 files translated\n  ok     a.srt -> a.esp.srt\n  failed b.srt: [FileRead] boom",
		r.Summary())
}
