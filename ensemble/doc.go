// Package ensemble turns reservoir-simulation realizations into tables.
//
// # Reading Guide
//
// Start with these files:
//   - realization.go: ScratchRealization, bound to a realization directory on
//     disk. Construction only discovers files; parameters and summary data
//     are read lazily, and the decoded summary file is cached per instance.
//   - numeric.go: Value, the int/real/text scalar every parsed file produces,
//     and Coerce, the lenient conversion into it.
//   - virtual.go: VirtualRealization, the detached in-memory counterpart.
//
// # Supporting pieces
//
//   - files.go: the ordered file registry of a realization
//   - discover.go: FindFiles, LoadScalar and LoadTxt on a realization
//   - summary.go: the SummaryReader collaborator and vector wildcard matching
//   - table.go, timeindex.go: date-indexed tables and calendar resampling
//   - ensemble.go, batch.go: many realizations processed by named batch steps
//   - aggregate.go: per-date statistics across realizations
//   - virtual_disk.go: dumping virtual realizations as YAML + CSV
//   - virtual_ensemble.go, combination.go: frozen ensembles and linear
//     combinations such as ref - sub or 0.5 * ens
//
// Summary decoders register themselves by setting NewSummaryReaderFunc from
// an init() function (see ensemble/smrycsv), or are passed per realization
// through RealizationConfig.OpenSummary.
package ensemble
