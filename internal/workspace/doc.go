// Package workspace manages the directory layout of a documentation build:
// the build tree sphinx renders into, the doctrees cache, and the generated
// areas inside the source tree (demo pages, API stubs, registry pages).
//
// Generated areas are owned by the build and may be reset wholesale;
// hand-written sources are never touched.
package workspace
