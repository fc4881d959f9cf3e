// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

//go:build ignore

// copyright.go adds copyright header to each Go file.

package main

import (
	"log"

	"go.astrophena.name/postbot/internal/copyright"
)

func main() {
	if err := copyright.Add("."); err != nil {
		log.Fatal(err)
	}
}
