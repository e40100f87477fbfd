// Package models defines the core domain models for the tutor ledger.
//
// # Entities
//
//   - Teacher: singleton profile of the tutor using the app
//   - Student: a person taught by the tutor, carrying the cached balance
//   - Group: a named, ordered list of student IDs taught together
//   - Lesson: an immutable charge against a student
//   - Payment: an immutable credit from a student
//   - Settings: singleton app preferences
//
// # Design Principles
//
// 1. **Plain data**: models carry JSON tags that double as the backup file contract
// 2. **Avoid circular references**: relationships use ID strings, never pointers
// 3. **Cached projections**: Student.Balance is derived from lessons and payments;
// only the ledger writes it
package models
