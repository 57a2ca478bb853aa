package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"trace", TRACE},
		{"DEBUG", DEBUG},
		{"", INFO},
		{"warning", WARN},
		{" error ", ERROR},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestWriterLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("combat", &buf, WARN)

	l.Info("не должно попасть")
	l.Warn("удар по %s", "npc-1")

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "удар по npc-1")
	assert.Contains(t, out, "component=combat")
}

func TestEntry_FieldsAreNotShared(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("world", &buf, TRACE)

	base := l.WithFields(map[string]interface{}{"tick": 7})
	child := base.WithFields(map[string]interface{}{"cells": 3})

	base.Info("база")
	child.Info("потомок")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "tick=7")
	assert.NotContains(t, string(lines[0]), "cells=3")
	assert.Contains(t, string(lines[1]), "cells=3")
	assert.Contains(t, string(lines[1]), "tick=7")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("ничего") })
}

func TestManager_ComponentLoggersAreCached(t *testing.T) {
	a := GetComponentLogger("test-cache")
	b := GetComponentLogger("test-cache")
	assert.Same(t, a, b)
	assert.Equal(t, "test-cache", a.Component())
	assert.Contains(t, GetLoggerManager().ListComponents(), "test-cache")
}
