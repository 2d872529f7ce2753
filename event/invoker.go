// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package event

// Invoker is the callable stored in an event.
type Invoker interface {
	Invoke()
}

// InvokerFunc adapts a plain func() to an Invoker.
type InvokerFunc func()

func (f InvokerFunc) Invoke() {
	f()
}

// Bind captures a by value; fn(a) runs on Invoke.
func Bind[A any](fn func(A), a A) Invoker {
	return InvokerFunc(func() {
		fn(a)
	})
}

func Bind2[A, B any](fn func(A, B), a A, b B) Invoker {
	return InvokerFunc(func() {
		fn(a, b)
	})
}

func Bind3[A, B, C any](fn func(A, B, C), a A, b B, c C) Invoker {
	return InvokerFunc(func() {
		fn(a, b, c)
	})
}

// BindMethod binds a method expression such as (*Node).Receive to obj and an argument.
func BindMethod[T, A any](obj T, method func(T, A), a A) Invoker {
	return InvokerFunc(func() {
		method(obj, a)
	})
}

func BindMethod2[T, A, B any](obj T, method func(T, A, B), a A, b B) Invoker {
	return InvokerFunc(func() {
		method(obj, a, b)
	})
}
