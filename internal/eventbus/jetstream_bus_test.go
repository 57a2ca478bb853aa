package eventbus

import (
	"strings"
	"testing"

	nats "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjects_For(t *testing.T) {
	s := Subjects{Prefix: "brawl"}
	tests := []struct {
		eventType, source, want string
	}{
		{TypeDamage, "game", "brawl.combat.damage.game"},
		{TypeConsolePrint, "game", "brawl.console.print.game"},
		{"heartbeat", "game", "brawl.heartbeat.event.game"},
		{"combat.damage.crit", "arena 2", "brawl.combat.damage_crit.arena_2"},
		{TypeDamage, "", "brawl.combat.damage.unknown"},
		{TypeDamage, "a.b>*", "brawl.combat.damage.a_b__"},
	}
	for _, tt := range tests {
		got := s.For(&Envelope{EventType: tt.eventType, Source: tt.source})
		assert.Equal(t, tt.want, got, "%s/%s", tt.eventType, tt.source)
	}
	assert.Equal(t, "brawl.>", s.All())
}

func TestSubjects_ForFilter(t *testing.T) {
	s := Subjects{Prefix: "brawl"}

	assert.Equal(t, []string{"brawl.*.*.*"}, s.ForFilter(Filter{}))
	assert.Equal(t, []string{"brawl.combat.damage.*"}, s.ForFilter(Filter{Types: []string{TypeDamage}}))
	assert.Equal(t, []string{"brawl.*.*.game"}, s.ForFilter(Filter{Sources: []string{"game"}}))
	assert.Equal(t,
		[]string{"brawl.combat.damage.game", "brawl.combat.damage.bot", "brawl.state.transition.game", "brawl.state.transition.bot"},
		s.ForFilter(Filter{Types: []string{TypeDamage, TypeStateTransition}, Sources: []string{"game", "bot"}}))

	// тип не из двух токенов фильтруется на клиенте
	assert.Equal(t, []string{"brawl.>"}, s.ForFilter(Filter{Types: []string{TypeDamage, "heartbeat"}}))
}

func TestSubjects_FilterCoversPublishedSubject(t *testing.T) {
	s := Subjects{Prefix: "brawl"}
	ev := &Envelope{EventType: TypeStateTransition, Source: "game"}
	for _, f := range []Filter{
		{},
		{Types: []string{TypeStateTransition}},
		{Sources: []string{"game"}},
		{Types: []string{TypeStateTransition}, Sources: []string{"game"}},
	} {
		subjects := s.ForFilter(f)
		require.Len(t, subjects, 1)
		assert.True(t, subjectMatches(subjects[0], s.For(ev)), "%v не покрывает %s", subjects, s.For(ev))
	}
}

func TestEncodeMsg_Headers(t *testing.T) {
	env, err := NewTickEnvelope("game", TypeDamage, 6, 42, DamagePayload{Tick: 42, Damage: 1})
	require.NoError(t, err)

	msg, err := encodeMsg(Subjects{Prefix: "brawl"}, env)
	require.NoError(t, err)
	assert.Equal(t, "brawl.combat.damage.game", msg.Subject)
	assert.Equal(t, env.ID, msg.Header.Get(nats.MsgIdHdr), "ID конверта служит ключом дедупликации")
	assert.Equal(t, "6", msg.Header.Get(HeaderPriority))
	assert.Equal(t, "42", msg.Header.Get(HeaderTick))
	assert.Contains(t, string(msg.Data), env.ID)

	plain, err := NewEnvelope("game", TypeDamage, 1, DamagePayload{})
	require.NoError(t, err)
	msg, err = encodeMsg(Subjects{Prefix: "brawl"}, plain)
	require.NoError(t, err)
	assert.Empty(t, msg.Header.Get(HeaderTick))
}

func TestJetStreamConfig_Defaults(t *testing.T) {
	var c JetStreamConfig
	c.withDefaults()
	assert.Equal(t, "EVENTS", c.Stream)
	assert.Equal(t, "brawl", c.Prefix)
	assert.Equal(t, "tile-brawl", c.Name)
	assert.Positive(t, c.Retention)
}

// subjectMatches сопоставляет subject с шаблоном NATS (* и >)
func subjectMatches(pattern, subject string) bool {
	p, s := strings.Split(pattern, "."), strings.Split(subject, ".")
	for i, tok := range p {
		if tok == ">" {
			return i < len(s)
		}
		if i >= len(s) || (tok != "*" && tok != s[i]) {
			return false
		}
	}
	return len(p) == len(s)
}
