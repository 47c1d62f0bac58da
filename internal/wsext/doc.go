// Package wsext wires the socket extension into a document.
//
// Processing a subtree establishes a connection for every ws-connect
// element and binds every ws-send element to the connection of its
// nearest owner (or the owner named by ws-send="#id"). Send elements with
// no owner yet are kept aside and bound as soon as one is established.
// Removing an element from the document tears down the connections it
// owns; inserted content is processed.
//
// All methods must run on the event loop.
package wsext
