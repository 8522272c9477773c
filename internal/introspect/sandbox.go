package introspect

// sandboxPrelude installs minimal stand-ins for the browser globals a mods
// module touches while constructing its top-level object literal. The goal is
// not to emulate a rendering surface, only to let the declaration run to
// completion: element factories hand back inert nodes, timers and animation
// frames do nothing, and file/worker constructors are hollow shells.
const sandboxPrelude = `
var __element = function() {
	var el = {
		style: {},
		dataset: {},
		childNodes: [],
		value: '',
		checked: false,
		innerHTML: '',
		width: 0,
		height: 0,
		type: ''
	};
	el.appendChild = function(child) { el.childNodes.push(child); return child; };
	el.removeChild = function(child) { return child; };
	el.setAttribute = function() {};
	el.getAttribute = function() { return null; };
	el.addEventListener = function() {};
	el.removeEventListener = function() {};
	el.dispatchEvent = function() { return true; };
	el.focus = function() {};
	el.click = function() {};
	el.getContext = function() {
		return {
			fillRect: function() {},
			clearRect: function() {},
			drawImage: function() {},
			getImageData: function() { return { data: [], width: 0, height: 0 }; },
			putImageData: function() {},
			createImageData: function() { return { data: [], width: 0, height: 0 }; },
			beginPath: function() {},
			moveTo: function() {},
			lineTo: function() {},
			arc: function() {},
			stroke: function() {},
			fill: function() {},
			save: function() {},
			restore: function() {},
			translate: function() {},
			scale: function() {}
		};
	};
	return el;
};

var document = {
	createElement: function() { return __element(); },
	createElementNS: function() { return __element(); },
	createTextNode: function(text) { var el = __element(); el.nodeValue = text; return el; },
	getElementById: function() { return __element(); },
	querySelector: function() { return __element(); },
	querySelectorAll: function() { return []; },
	addEventListener: function() {},
	body: __element()
};

var window = {
	document: document,
	addEventListener: function() {},
	removeEventListener: function() {},
	location: { href: '' },
	innerWidth: 0,
	innerHeight: 0
};

var navigator = { userAgent: 'mods-mcp' };

var setTimeout = function() { return 0; };
var setInterval = function() { return 0; };
var clearTimeout = function() {};
var clearInterval = function() {};
var requestAnimationFrame = function() { return 0; };
var cancelAnimationFrame = function() {};
var alert = function() {};

var Worker = function() {
	this.postMessage = function() {};
	this.terminate = function() {};
	this.addEventListener = function() {};
};
var FileReader = function() {
	this.readAsArrayBuffer = function() {};
	this.readAsText = function() {};
	this.readAsDataURL = function() {};
	this.addEventListener = function() {};
};
var Image = function() {
	this.addEventListener = function() {};
};
var Blob = function() {};
var WebSocket = function() {
	this.send = function() {};
	this.close = function() {};
	this.addEventListener = function() {};
};
var XMLHttpRequest = function() {
	this.open = function() {};
	this.send = function() {};
	this.addEventListener = function() {};
};
`
