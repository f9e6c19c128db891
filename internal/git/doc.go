// Package git reports how sealed files relate to an enclosing git repository.
//
// Checks performed:
//   - Whether plaintext sources that still exist are tracked by git (should not be)
//   - Whether plaintext sources are in .gitignore (should be)
//
// These checks help users avoid committing the files they just encrypted.
package git
