//
// Tencent is pleased to support the open source community by making trpc-solc-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-solc-go is licensed under the Apache License Version 2.0.
//
//

package solc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"
)

// RequestError is one failed request of a CompileAll call.
type RequestError struct {
	// Index of the request in the slice given to CompileAll.
	Index  int
	Source string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %d (%s): %v", e.Index, e.Source, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// RequestErrors returns the per-request failures held in an error returned
// by CompileAll.
func RequestErrors(err error) []*RequestError {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return nil
	}
	var out []*RequestError
	for _, e := range merr.Errors {
		var re *RequestError
		if errors.As(e, &re) {
			out = append(out, re)
		}
	}
	return out
}

type compileParam struct {
	idx     int
	ctx     context.Context
	req     Request
	c       *Compiler
	results []Result
	errs    []error
	wg      *sync.WaitGroup
}

func (p *compileParam) reset() {
	p.idx = 0
	p.ctx = nil
	p.req = Request{}
	p.c = nil
	p.results = nil
	p.errs = nil
	p.wg = nil
}

var compileParamPool = &sync.Pool{
	New: func() any { return new(compileParam) },
}

func createCompilePool(size int) (*ants.PoolWithFunc, error) {
	pool, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*compileParam)
		if !ok {
			panic("compile pool args type error")
		}
		wg := param.wg
		defer func() {
			wg.Done()
			param.reset()
			compileParamPool.Put(param)
		}()
		res, err := param.c.Compile(param.ctx, param.req)
		if err != nil {
			res = Result{Stderr: err.Error(), ExitCode: exitCodeUnknown}
		}
		param.results[param.idx] = res
		param.errs[param.idx] = err
	})
	if err != nil {
		return nil, fmt.Errorf("create compile pool: %w", err)
	}
	return pool, nil
}

// CompileAll compiles independent requests concurrently, at most the
// configured pool size at a time. results[i] belongs to reqs[i].
//
// A request that fails before its process starts gets a failed Result whose
// Stderr holds the reason; those reasons are also aggregated into the
// returned error as *RequestError values, see RequestErrors. Failed
// compilations are not errors.
func (c *Compiler) CompileAll(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}
	pool, err := createCompilePool(min(c.poolSize, len(reqs)))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	errs := make([]error, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		param := compileParamPool.Get().(*compileParam)
		param.idx = i
		param.ctx = ctx
		param.req = req
		param.c = c
		param.results = results
		param.errs = errs
		param.wg = &wg
		wg.Add(1)
		if err := pool.Invoke(param); err != nil {
			wg.Done()
			param.reset()
			compileParamPool.Put(param)
			errs[i] = fmt.Errorf("submit: %w", err)
			results[i] = Result{Stderr: errs[i].Error(), ExitCode: exitCodeUnknown}
		}
	}
	wg.Wait()

	var merr *multierror.Error
	for i, err := range errs {
		if err == nil {
			continue
		}
		merr = multierror.Append(merr, &RequestError{Index: i, Source: firstSource(reqs[i]), Err: err})
	}
	return results, merr.ErrorOrNil()
}

func firstSource(req Request) string {
	if len(req.Sources) == 0 {
		return "<no sources>"
	}
	return req.Sources[0]
}
