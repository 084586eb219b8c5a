// veo package holds the types shared by every stage of VEO construction: the single
// error kind returned by the generator and its collaborators, the DataSource interface
// that feeds template substitutions, and small text helpers used when rendering VERS XML.
//
// The packages that do the work are template (parsing and resolving templates),
// generator (the streaming assembler and signing engine) and verify (re-checking a
// finished VEO).
package veo
