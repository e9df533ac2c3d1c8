/*
Package sandbox renders composed documents server-side in a goja VM.

The headless Target is a preview.Target: each present throws away the
previous VM, parses the document with goquery, and runs its inline scripts
in document order against a small DOM surface (document queries, element
proxies with textContent/innerHTML/attributes/classList, createElement,
appendChild). Console output and uncaught errors are captured per render.
Timers and load listeners fire once after the scripts; intervals never do.

Nothing is fetched: external scripts, stylesheets and images are ignored.

Scripts share one time budget per document. When it runs out the VM is
interrupted, remaining scripts are skipped, and the breaker in Target
counts a failure.

Pool serves stateless renders for the render API.
*/
package sandbox
