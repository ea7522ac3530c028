// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package agent answers natural-language questions about a SQL database by
// letting a language model call SQL tools in a reason-act loop.
package agent

import "context"

// StepObserver receives the agent's intermediate reasoning. OnStep is called
// synchronously on the goroutine running the agent, in order.
type StepObserver interface {
	OnStep(text string)
}

// DeltaObserver is optionally implemented by observers that want raw model
// tokens as they stream.
type DeltaObserver interface {
	OnDelta(text string)
}

// ObserverFunc adapts a function to StepObserver.
type ObserverFunc func(text string)

func (f ObserverFunc) OnStep(text string) { f(text) }

// Gateway turns a question into an answer. The answer is opaque text.
type Gateway interface {
	Run(ctx context.Context, query string, observers ...StepObserver) (string, error)
}

// fanout dispatches to every observer.
type fanout []StepObserver

func (f fanout) step(text string) {
	for _, o := range f {
		if o != nil {
			o.OnStep(text)
		}
	}
}

func (f fanout) delta(text string) {
	for _, o := range f {
		if d, ok := o.(DeltaObserver); ok {
			d.OnDelta(text)
		}
	}
}
