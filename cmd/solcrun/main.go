//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

// Command solcrun compiles Solidity sources with an installed solc binary.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"trpc.group/trpc-go/trpc-solc-go/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := newApp(ctx)
	err := app.Run(os.Args)
	stop()
	if err != nil {
		log.Errorf("solcrun: %v", err)
		os.Exit(1)
	}
}
