package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gqlreg/types"
)

func TestResolveNamespace(t *testing.T) {
	defaultSet := types.ConfigSet{
		"region":   "us-east-1",
		"endpoint": "https://api.example.com/graphql",
	}

	cases := []struct {
		name      string
		requested string
		set       types.ConfigSet
		want      string
	}{
		{"empty requests default", "", nil, types.DefaultServiceNamespace},
		{"default by name", types.DefaultServiceNamespace, defaultSet, types.DefaultServiceNamespace},
		{"absent set collapses", "ghost", nil, types.DefaultServiceNamespace},
		{"no region collapses", "noregion", types.ConfigSet{"endpoint": "https://x.example.com"}, types.DefaultServiceNamespace},
		{"empty region collapses", "emptyregion", types.ConfigSet{"region": "", "endpoint": "https://x.example.com"}, types.DefaultServiceNamespace},
		{
			"identical pair collapses", "mirror",
			types.ConfigSet{"region": "us-east-1", "endpoint": "https://api.example.com/graphql"},
			types.DefaultServiceNamespace,
		},
		{
			"distinct endpoint stands", "billing",
			types.ConfigSet{"region": "us-east-1", "endpoint": "https://billing.example.com/graphql"},
			"billing",
		},
		{
			"distinct region stands", "eu",
			types.ConfigSet{"region": "eu-west-1", "endpoint": "https://api.example.com/graphql"},
			"eu",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, resolveNamespace(tc.requested, tc.set, defaultSet))
		})
	}
}
