// SPDX-License-Identifier: MPL-2.0

// Package ledger keeps a history of install runs in a SQLite database.
package ledger
