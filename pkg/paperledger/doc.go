// Package paperledger ingests publication PDFs into a content-addressed
// document store and keeps an append-only provenance trail for every change.
//
// A Service composes a Repository (memory or Postgres), a BlobStore (memory,
// filesystem or S3) and, optionally, an Analyzer that computes open-data and
// open-code indicators for a PDF. Documents are identified by the SHA-256 of
// their bytes: ingesting the same bytes twice, under any name, yields one
// Document.
//
// Batch lifecycle
//
// IngestFiles moves a batch through Uploading, Recording, Linking and Done.
// Per-file storage failures and duplicate content never abort a batch. One
// Provenance row is written per batch, and only when the batch created at
// least one new Document. Every new Document gets an initial Work whose
// initial and primary document are the Document itself.
//
// Works and relinking
//
// Relink moves documents onto another Work without touching their previous
// Works. Works left without documents are kept as audit history and can be
// listed with ListOrphanWorks.
package paperledger
