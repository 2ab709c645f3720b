package env_vars_test

import (
	"testing"

	"github.com/specialistvlad/tsflow/internal/command"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/processor"
	"github.com/specialistvlad/tsflow/internal/registry"
	"github.com/specialistvlad/tsflow/internal/testutil"
	"github.com/specialistvlad/tsflow/modules/env_vars"
	"github.com/specialistvlad/tsflow/modules/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnv registers the command against a fixed environment.
type fakeEnv map[string]string

func (e fakeEnv) Register(r *registry.Registry) {
	r.RegisterCommand("SetPropertyFromEnvironment", func() command.Command {
		return env_vars.NewWithLookup(func(k string) (string, bool) {
			v, ok := e[k]
			return v, ok
		})
	})
}

func TestSetPropertyFromEnvironment(t *testing.T) {
	env := fakeEnv{"TSFLOW_BASIN": "upper", "EMPTY": ""}
	p := testutil.NewProcessor(t, `SetPropertyFromEnvironment(EnvVariable=TSFLOW_BASIN, PropertyName=Basin)
SetPropertyFromEnvironment(EnvVariable=TSFLOW_YEAR, PropertyName=Year, DefaultValue=2020)
SetPropertyFromEnvironment(EnvVariable=EMPTY, PropertyName=Empty, DefaultValue=unused)
SetPropertyFromEnvironment(EnvVariable=TSFLOW_UNSET, PropertyName=Unset)
Message(Message="${Basin} ${Year}")
`, nil, env, &message.Module{})
	ctx, logs := testutil.Context(t)

	res, err := p.Run(ctx, processor.RunOptions{Phase: diag.Run})
	require.NoError(t, err)
	require.Len(t, res.Commands, 5)

	state := p.State()
	assert.Equal(t, "upper", state.Get("Basin").String())
	assert.Equal(t, "2020", state.Get("Year").String())
	assert.False(t, state.Get("Empty").IsAbsent(), "a set but empty variable wins over the default")
	assert.Equal(t, "", state.Get("Empty").String())

	assert.Equal(t, diag.Warning, res.Commands[3].Severity(diag.Run))
	assert.True(t, state.Get("Unset").IsAbsent())
	assert.True(t, res.Success(), "a missing variable is only a warning")
	assert.Contains(t, logs.String(), "upper 2020")
}

func TestSetPropertyFromEnvironment_Check(t *testing.T) {
	p := testutil.NewProcessor(t, `SetPropertyFromEnvironment(PropertyName=Basin)
SetPropertyFromEnvironment(EnvVariable=X)
`, nil, fakeEnv{})
	ctx, _ := testutil.Context(t)

	res, err := p.Run(ctx, processor.RunOptions{Phase: diag.Discovery})
	require.NoError(t, err)
	for _, c := range res.Commands {
		assert.Equal(t, diag.Failure, c.Severity(diag.Initialization))
	}
}
