// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the fixed wire contracts between
// components: input event entries, command entries, and the frame
// header written at the start of a shared frame region.
//
// Every record here has a fixed size and explicit byte layout so that
// two components built separately agree on the shared-region contents.
// The frame header is the trust boundary between the decoder and the
// display: [FrameHeader.Validate] is what makes a producer-written
// header safe to act on.
package protocol
