// SPDX-License-Identifier: MPL-2.0

// Package hostpkg drives the host package mechanism: Python's venv module to
// create isolated environments, and pip/setuptools to build and install
// distributions. Everything runs as synchronous subprocesses through a Runner,
// so tests can substitute a recording fake.
package hostpkg
