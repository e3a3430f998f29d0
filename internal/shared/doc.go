// Package shared holds code used across packages that belongs to no single
// layer. The testutil subpackage provides a slog capture handler and an
// xlsx fixture builder for the price workbook.
package shared
