// Package registration admits students into capacity-limited courses.
//
// Every Register and Drop on a course runs inside that course's serialization boundary: a FIFO
// semaphore keyed by course id, followed by a store transaction that locks the course row.
// Inside the boundary the capacity gate decides ENROLLED or RESERVED, the reserve queue keeps
// positions contiguous and the drop coordinator promotes the queue head when a seat frees.
// Operations on different courses never wait on each other.
package registration
