package automation

// In-page scripts. Each is a function expression evaluated by Rod.

// setTogglesJS clicks every control whose text matches one of the labels
// and whose on/off state differs from wantOn. State comes from
// aria-pressed, else from an active/selected/on class.
const setTogglesJS = `(labels, wantOn) => {
  labels = labels.map(s => s.toLowerCase());
  const isOn = (el) => {
    const ap = (el.getAttribute('aria-pressed') || '').toLowerCase();
    if (ap === 'true') return true;
    if (ap === 'false') return false;
    const cls = (typeof el.className === 'string' ? el.className : '').toLowerCase();
    return cls.includes('active') || cls.includes('selected') || cls.includes('on');
  };
  let changed = 0;
  const all = Array.from(document.querySelectorAll('button, [role="button"], a, label, div, span'));
  for (const el of all) {
    const t = (el.innerText || el.textContent || '').trim().toLowerCase();
    if (!t) continue;
    if (!labels.some(l => t === l || t.includes(l))) continue;
    if (isOn(el) !== wantOn) {
      try { el.click(); changed++; } catch (e) {}
    }
  }
  return changed;
}`

// zoomOutJS presses the map's zoom-out control up to times times.
const zoomOutJS = `(times) => {
  const labels = ['zoom out', '-'];
  const buttons = Array.from(document.querySelectorAll('button, [role="button"]'));
  let cnt = 0;
  for (let i = 0; i < times; i++) {
    let clicked = false;
    for (const b of buttons) {
      const a = (b.getAttribute('aria-label') || '').toLowerCase();
      const t = (b.getAttribute('title') || '').toLowerCase();
      const x = (b.innerText || '').trim().toLowerCase();
      if (labels.some(l => a.includes(l) || t.includes(l) || x === l)) {
        try { b.click(); cnt++; clicked = true; break; } catch (e) {}
      }
    }
    if (!clicked) break;
  }
  return cnt;
}`

// markListJS tags the scrollable list pane with listAttr and reports
// whether one was found. The pane is the first scrollable element showing
// at least two "Get Directions" entries, else the tallest element that
// shows any.
const markListJS = `(attr) => {
  const cands = Array.from(document.querySelectorAll('div, aside, section, ul'));
  let found = null;
  for (const el of cands) {
    const style = window.getComputedStyle(el);
    const scrollable = (el.scrollHeight > el.clientHeight + 20) && /(auto|scroll)/.test(style.overflowY);
    const matches = ((el.innerText || '').match(/Get Directions/g) || []).length;
    if (scrollable && matches >= 2) { found = el; break; }
  }
  if (!found) {
    let bestH = 0;
    for (const el of cands) {
      if ((el.innerText || '').includes('Get Directions') && el.scrollHeight > bestH) {
        found = el; bestH = el.scrollHeight;
      }
    }
  }
  if (!found) return false;
  found.setAttribute(attr, '1');
  return true;
}`

// scrollListJS scrolls the tagged pane to its end (toEnd) or its top and
// returns the pane's text length.
const scrollListJS = `(attr, toEnd) => {
  const el = document.querySelector('[' + attr + ']');
  if (!el) return -1;
  el.scrollTop = toEnd ? el.scrollHeight : 0;
  return (el.innerText || '').length;
}`

// scrollWindowJS scrolls the window to its end or its top and returns the
// page's text length.
const scrollWindowJS = `(toEnd) => {
  window.scrollTo(0, toEnd ? document.body.scrollHeight : 0);
  return (document.body.innerText || '').length;
}`

// scrollByJS scrolls the window down by a third of the page height.
const scrollByJS = `() => window.scrollBy(0, document.body.scrollHeight / 3)`

// linesJS returns the document's visible text, one trimmed line each.
const linesJS = `() => (document.body ? document.body.innerText : '')
  .split('\n').map(s => s.trim()).filter(Boolean)`

// linksJS returns the resolved href of every anchor.
const linksJS = `() => Array.from(document.querySelectorAll('a[href]')).map(a => a.href)`

// iframeSrcsJS returns the src of every iframe.
const iframeSrcsJS = `() => Array.from(document.querySelectorAll('iframe')).map(f => f.src || '')`

// clickThisJS clicks the element bound to this.
const clickThisJS = `() => this.click()`

// bodyClickJS clicks the document body, dismissing most overlays.
const bodyClickJS = `() => document.body.click()`
