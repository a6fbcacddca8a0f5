// Package certificate provides domain models for the digital signing
// certificates of a company.
//
// Two representations coexist:
//   - LegacyConfig: the original single certificate stored on the company
//     (file path, password and an active flag)
//   - Registry: the newer multi-certificate store that keeps every uploaded
//     certificate with its validity window and activation state
//
// The pure functions in this package decide which representation is
// authoritative (ResolveActive), which migration path applies
// (DetermineMigrationStrategy) and how registry state is presented to code
// that still reads the legacy shape (BuildLegacyView). Nothing here performs I/O.
package certificate
