package envstruct_test

import (
	"github.com/myrjola/chronicler/internal/envstruct"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"time"
)

func TestPopulate(t *testing.T) {
	type args struct {
		v         any
		lookupEnv func(string) (string, bool)
	}
	tests := []struct {
		name    string
		args    args
		want    any
		wantErr error
	}{
		{
			name: "nil",
			args: args{
				v:         nil,
				lookupEnv: func(_ string) (string, bool) { return "", false },
			},
			want:    nil,
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name: "not pointer",
			args: args{
				v:         struct{}{},
				lookupEnv: func(_ string) (string, bool) { return "", false },
			},
			want:    nil,
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name: "empty env",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					EnvVar string `env:"ENV_VAR"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "", false },
			},
			want:    nil,
			wantErr: envstruct.ErrEnvNotSet,
		},
		{
			name: "picks correct env variable",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					EnvVar     string `env:"ENV_VAR"`
					EnvVar2    string `env:"ENV_VAR2"`
					OtherValue string
				}{},
				lookupEnv: func(s string) (string, bool) { return strings.ToLower(s), true },
			},
			want: &struct {
				EnvVar     string
				EnvVar2    string
				OtherValue string
			}{EnvVar: "env_var", EnvVar2: "env_var2", OtherValue: ""},
			wantErr: nil,
		},
		{
			name: "handles defaults for every supported type",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					Provider string        `env:"PROVIDER" envDefault:"openai"`
					Timeout  time.Duration `env:"TIMEOUT" envDefault:"90s"`
					Verbose  bool          `env:"VERBOSE" envDefault:"true"`
					Retries  int           `env:"RETRIES" envDefault:"3"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "", false },
			},
			want: &struct {
				Provider string
				Timeout  time.Duration
				Verbose  bool
				Retries  int
			}{Provider: "openai", Timeout: 90 * time.Second, Verbose: true, Retries: 3},
			wantErr: nil,
		},
		{
			name: "rejects malformed duration",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					Timeout time.Duration `env:"TIMEOUT"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "soon", true },
			},
			want:    nil,
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name: "rejects unsupported types",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					Ratio float64 `env:"RATIO"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "0.5", true },
			},
			want:    nil,
			wantErr: envstruct.ErrInvalidValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.args.v
			err := envstruct.Populate(v, tt.args.lookupEnv)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.EqualValues(t, tt.want, v)
			}
		})
	}
}
