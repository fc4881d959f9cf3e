// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package version

import (
	"runtime/debug"
	"testing"

	"go.astrophena.name/postbot/internal/testutil"
)

func TestLoadInfo(t *testing.T) {
	t.Parallel()

	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abcdef"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}
	i := loadInfo(func() (*debug.BuildInfo, bool) { return bi, true })

	testutil.AssertEqual(t, i.Version, "v1.2.3")
	testutil.AssertEqual(t, i.Commit, "abcdef")
	testutil.AssertEqual(t, i.BuiltAt, "2026-01-02T03:04:05Z")
}

func TestUserAgent(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in   Info
		want string
	}{
		"release": {
			in:   Info{Version: "v1.0.0", Commit: "abc"},
			want: "postbot/v1.0.0 (+https://astrophena.name/bleep-bloop)",
		},
		"devel with commit": {
			in:   Info{Version: "devel", Commit: "abc"},
			want: "postbot/abc (+https://astrophena.name/bleep-bloop)",
		},
		"devel": {
			in:   Info{Version: "devel"},
			want: "postbot/devel (+https://astrophena.name/bleep-bloop)",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, userAgent(tc.in), tc.want)
		})
	}
}
