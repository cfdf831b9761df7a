// Package conntab implements the fixed-capacity connection table: one
// slot per tracked socket, identified by index, with a free-descriptor
// sentinel marking unoccupied slots.
//
// A slot's descriptor equals FreeSentinel if and only if no live socket
// occupies it. Free slot lookup is a linear first-fit scan, matching the
// table's small fixed capacity. Released slots become reusable by the
// very next attach.
//
// The table is owned by exactly one control loop. All mutation happens
// on that loop, so the type carries no locking.
package conntab
