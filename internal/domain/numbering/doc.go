// Package numbering provides domain models for electronic document numbering.
//
// Every tax document (factura, boleta, nota de crédito) is numbered inside a
// series such as "F001" or "B001". The remote authority owns the canonical
// counter of each series; this package models the client-side view of it:
//   - SeriesCounter: current/initial number pair of one series
//   - CounterConfig: the payload used to create or reconfigure a counter
//   - CounterSet: the locally cached counter list with its merge rules
//   - NextNumber: the advisory allocation returned by the authority
package numbering
